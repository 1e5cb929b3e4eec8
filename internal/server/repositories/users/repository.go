package users

import (
	"context"

	"github.com/dmitrijs2005/keyproxy/internal/server/models"
)

type Repository interface {
	// CreateIfAbsent inserts user unless the username is taken and reports
	// whether a row was written.
	CreateIfAbsent(ctx context.Context, user *models.User) (bool, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Lock takes a row lock on the user for the rest of the transaction.
	Lock(ctx context.Context, id string) error
}
