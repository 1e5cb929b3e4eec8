package apikeys

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
	list        string
	get         string
	first       string
	insert      string
	delete      string
	deleteAll   string
	clearActive string
	markActive  string
}

type SQLRepository struct {
	db dbx.DBTX
	q  queries
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string) ([]models.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, r.q.list, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	keys := make([]models.APIKey, 0)
	for rows.Next() {
		var k models.APIKey
		if err := scanKey(rows, &k); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}

func (r *SQLRepository) Get(ctx context.Context, userID, keyID string) (*models.APIKey, error) {
	return r.getOne(ctx, r.q.get, userID, keyID)
}

func (r *SQLRepository) First(ctx context.Context, userID string) (*models.APIKey, error) {
	return r.getOne(ctx, r.q.first, userID)
}

func (r *SQLRepository) Insert(ctx context.Context, key *models.APIKey) error {
	_, err := r.db.ExecContext(ctx, r.q.insert,
		key.ID, key.UserID, key.EncryptedValue, key.Source, key.IsActive, key.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, userID, keyID string) (bool, error) {
	return r.execAffected(ctx, r.q.delete, userID, keyID)
}

func (r *SQLRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, r.q.deleteAll, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) ClearActive(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, r.q.clearActive, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) MarkActive(ctx context.Context, userID, keyID string) (bool, error) {
	return r.execAffected(ctx, r.q.markActive, userID, keyID)
}

func (r *SQLRepository) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) getOne(ctx context.Context, query string, args ...any) (*models.APIKey, error) {
	k := &models.APIKey{}
	if err := scanKey(r.db.QueryRowContext(ctx, query, args...), k); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return k, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(s scanner, k *models.APIKey) error {
	return s.Scan(&k.ID, &k.UserID, &k.EncryptedValue, &k.Source, &k.IsActive, &k.CreatedAt)
}
