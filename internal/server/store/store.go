// Package store is the credential store: users, their encrypted API keys and
// usage counters. Composite key operations run in a single transaction that
// first locks the owning user row, so concurrent requests for the same user
// never leave zero or two active keys behind.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/common"
	"github.com/dmitrijs2005/keyproxy/internal/cryptox"
	"github.com/dmitrijs2005/keyproxy/internal/dbx"
	"github.com/dmitrijs2005/keyproxy/internal/server/models"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type Store struct {
	db  *sql.DB
	rm  repomanager.RepositoryManager
	now func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now for created_at and last_used_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(db *sql.DB, rm repomanager.RepositoryManager, opts ...Option) *Store {
	s := &Store{db: db, rm: rm, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// EnsureUser returns the user named username, creating it with a fresh salt
// and password hash when absent. Racing creators all get the winning row.
func (s *Store) EnsureUser(ctx context.Context, username, password string) (*models.User, error) {
	repo := s.rm.Users(s.db)

	u, err := repo.GetByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	salt := cryptox.NewSalt()
	candidate := &models.User{
		ID:           uuid.NewString(),
		UserName:     username,
		PasswordSalt: salt,
		PasswordHash: cryptox.HashPassword(password, salt),
		CreatedAt:    s.stamp(),
	}

	if _, err := repo.CreateIfAbsent(ctx, candidate); err != nil {
		return nil, err
	}

	return repo.GetByUsername(ctx, username)
}

func (s *Store) GetUserByName(ctx context.Context, username string) (*models.User, error) {
	return s.rm.Users(s.db).GetByUsername(ctx, username)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.rm.Users(s.db).GetByID(ctx, id)
}

// ListKeys returns the user's keys in creation order.
func (s *Store) ListKeys(ctx context.Context, userID string) ([]models.APIKey, error) {
	return s.rm.APIKeys(s.db).ListByUser(ctx, userID)
}

// ReplaceKeys swaps the user's whole key set. Only the key whose id equals
// activeID is stored active; an empty or unknown activeID leaves none active.
func (s *Store) ReplaceKeys(ctx context.Context, userID string, keys []models.APIKey, activeID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Users(tx).Lock(ctx, userID); err != nil {
			return err
		}
		return s.replace(ctx, tx, userID, keys, activeID)
	})
}

// KeyChange is the replacement key set produced by a KeyUpdate.
type KeyChange struct {
	Keys     []models.APIKey
	ActiveID string
}

// KeyUpdate receives the current keys and returns the replacement, or nil
// to leave the stored set untouched.
type KeyUpdate func(current []models.APIKey) (*KeyChange, error)

// UpdateKeys is a read-modify-write of the user's key set in one transaction.
// It returns the stored keys after the update.
func (s *Store) UpdateKeys(ctx context.Context, userID string, fn KeyUpdate) ([]models.APIKey, error) {
	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) ([]models.APIKey, error) {
		if err := s.rm.Users(tx).Lock(ctx, userID); err != nil {
			return nil, err
		}

		repo := s.rm.APIKeys(tx)
		current, err := repo.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}

		change, err := fn(current)
		if err != nil {
			return nil, err
		}
		if change == nil {
			return current, nil
		}

		if err := s.replace(ctx, tx, userID, change.Keys, change.ActiveID); err != nil {
			return nil, err
		}
		return repo.ListByUser(ctx, userID)
	})
}

func (s *Store) replace(ctx context.Context, tx dbx.DBTX, userID string, keys []models.APIKey, activeID string) error {
	repo := s.rm.APIKeys(tx)

	if err := repo.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}

	now := s.stamp()
	for i := range keys {
		k := keys[i]
		if k.ID == "" {
			k.ID = uuid.NewString()
		}
		if k.CreatedAt.IsZero() {
			k.CreatedAt = now
		}
		k.UserID = userID
		k.IsActive = activeID != "" && k.ID == activeID

		if err := repo.Insert(ctx, &k); err != nil {
			return err
		}
	}
	return nil
}

// KeyPicker chooses the next active key among the remaining ones, or "" for
// none.
type KeyPicker func(remaining []models.APIKey) string

// DeleteKey removes one key and reports whether it existed. When the active
// key goes, pick chooses its successor; a nil pick takes the oldest remaining
// key.
func (s *Store) DeleteKey(ctx context.Context, userID, keyID string, pick KeyPicker) (bool, error) {
	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (bool, error) {
		if err := s.rm.Users(tx).Lock(ctx, userID); err != nil {
			return false, notFoundAsFalse(err)
		}

		repo := s.rm.APIKeys(tx)
		key, err := repo.Get(ctx, userID, keyID)
		if err != nil {
			return false, notFoundAsFalse(err)
		}

		if _, err := repo.Delete(ctx, userID, keyID); err != nil {
			return false, err
		}

		if !key.IsActive {
			return true, nil
		}

		nextID, err := s.successor(ctx, repo, userID, pick)
		if err != nil {
			return false, err
		}
		if nextID == "" {
			return true, nil
		}

		if _, err := repo.MarkActive(ctx, userID, nextID); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (s *Store) successor(ctx context.Context, repo apikeys.Repository, userID string, pick KeyPicker) (string, error) {
	if pick == nil {
		next, err := repo.First(ctx, userID)
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return next.ID, nil
	}

	remaining, err := repo.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(remaining) == 0 {
		return "", nil
	}
	return pick(remaining), nil
}

// SetActiveKey makes keyID the user's only active key. It reports false,
// changing nothing, when the key does not belong to the user.
func (s *Store) SetActiveKey(ctx context.Context, userID, keyID string) (bool, error) {
	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (bool, error) {
		if err := s.rm.Users(tx).Lock(ctx, userID); err != nil {
			return false, notFoundAsFalse(err)
		}

		repo := s.rm.APIKeys(tx)
		if _, err := repo.Get(ctx, userID, keyID); err != nil {
			return false, notFoundAsFalse(err)
		}

		// cleared first: the partial unique index checks each row
		if err := repo.ClearActive(ctx, userID); err != nil {
			return false, err
		}
		return repo.MarkActive(ctx, userID, keyID)
	})
}

// RecordUsage counts one successful upstream call.
func (s *Store) RecordUsage(ctx context.Context, userID string) error {
	return s.rm.Usage(s.db).Increment(ctx, userID, s.stamp())
}

// GetUsage returns the user's counters, zero when nothing was recorded yet.
func (s *Store) GetUsage(ctx context.Context, userID string) (*models.UsageStats, error) {
	st, err := s.rm.Usage(s.db).Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return &models.UsageStats{UserID: userID}, nil
	}
	return st, err
}

func notFoundAsFalse(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return err
}
