package apikeys

import (
	"context"

	"github.com/dmitrijs2005/keyproxy/internal/server/models"
)

// Repository stores encrypted API keys. Lists are ordered by creation time,
// ties broken by id.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]models.APIKey, error)
	Get(ctx context.Context, userID, keyID string) (*models.APIKey, error)
	First(ctx context.Context, userID string) (*models.APIKey, error)
	Insert(ctx context.Context, key *models.APIKey) error
	Delete(ctx context.Context, userID, keyID string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID string) error
	ClearActive(ctx context.Context, userID string) error
	MarkActive(ctx context.Context, userID, keyID string) (bool, error)
}
