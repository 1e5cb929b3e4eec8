package services

import (
	"context"

	"github.com/dmitrijs2005/keyproxy/internal/server/models"
	"github.com/dmitrijs2005/keyproxy/internal/server/store"
)

// UserStore is the part of the credential store the auth service needs.
type UserStore interface {
	EnsureUser(ctx context.Context, username, password string) (*models.User, error)
	GetUserByName(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// KeyStore is the part of the credential store that holds API keys.
type KeyStore interface {
	ListKeys(ctx context.Context, userID string) ([]models.APIKey, error)
	UpdateKeys(ctx context.Context, userID string, fn store.KeyUpdate) ([]models.APIKey, error)
	DeleteKey(ctx context.Context, userID, keyID string, pick store.KeyPicker) (bool, error)
	SetActiveKey(ctx context.Context, userID, keyID string) (bool, error)
}

// UsageStore counts successful upstream calls.
type UsageStore interface {
	RecordUsage(ctx context.Context, userID string) error
	GetUsage(ctx context.Context, userID string) (*models.UsageStats, error)
}

// AuthMetrics receives login outcomes.
type AuthMetrics interface {
	LoginFailed()
	LoginLocked()
}

type nopAuthMetrics struct{}

func (nopAuthMetrics) LoginFailed() {}
func (nopAuthMetrics) LoginLocked() {}
