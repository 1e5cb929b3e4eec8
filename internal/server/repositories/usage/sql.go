package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/common"
	"github.com/dmitrijs2005/keyproxy/internal/dbx"
	"github.com/dmitrijs2005/keyproxy/internal/server/models"
)

type queries struct {
	increment string
	get       string
}

type SQLRepository struct {
	db dbx.DBTX
	q  queries
}

func (r *SQLRepository) Increment(ctx context.Context, userID string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, r.q.increment, userID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, userID string) (*models.UsageStats, error) {
	s := &models.UsageStats{}
	var last sql.NullTime

	err := r.db.QueryRowContext(ctx, r.q.get, userID).Scan(&s.UserID, &s.TotalCalls, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if last.Valid {
		t := last.Time
		s.LastUsedAt = &t
	}
	return s, nil
}
