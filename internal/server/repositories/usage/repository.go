package usage

import (
	"context"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/server/models"
)

type Repository interface {
	// Increment adds one call and stamps at, creating the row on first use.
	Increment(ctx context.Context, userID string, at time.Time) error
	Get(ctx context.Context, userID string) (*models.UsageStats, error)
}
