package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/keyproxy/internal/common"
	"github.com/dmitrijs2005/keyproxy/internal/dbx"
	"github.com/dmitrijs2005/keyproxy/internal/server/models"
)

type queries struct {
	createIfAbsent string
	byUsername     string
	byID           string
	lock           string
}

// SQLRepository implements Repository over database/sql. Dialects differ
// only in query text.
type SQLRepository struct {
	db dbx.DBTX
	q  queries
}

func (r *SQLRepository) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.q.createIfAbsent,
		user.ID, user.UserName, user.PasswordSalt, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, r.q.byUsername, username)
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, r.q.byID, id)
}

func (r *SQLRepository) Lock(ctx context.Context, id string) error {
	var got string
	err := r.db.QueryRowContext(ctx, r.q.lock, id).Scan(&got)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.UserName, &user.PasswordSalt, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
