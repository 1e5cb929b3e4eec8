package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/usage"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func stubGoose(t *testing.T, fn func(dir string) error) {
	t.Helper()
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return fn(dir)
	}
	t.Cleanup(func() { gooseUpContext = orig })
}

func TestManagers_Factories(t *testing.T) {
	db := newDB(t)

	for _, m := range []RepositoryManager{NewPostgresRepositoryManager(), NewSQLiteRepositoryManager()} {
		t.Run(m.Dialect(), func(t *testing.T) {
			var _ users.Repository = m.Users(db)
			var _ apikeys.Repository = m.APIKeys(db)
			var _ usage.Repository = m.Usage(db)

			assert.NotNil(t, m.Users(db))
			assert.NotNil(t, m.APIKeys(db))
			assert.NotNil(t, m.Usage(db))
		})
	}
}

func TestRunMigrations_Dirs(t *testing.T) {
	db := newDB(t)

	tests := []struct {
		m   RepositoryManager
		dir string
	}{
		{NewPostgresRepositoryManager(), "postgres"},
		{NewSQLiteRepositoryManager(), "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.m.Dialect(), func(t *testing.T) {
			var gotDir string
			stubGoose(t, func(dir string) error {
				gotDir = dir
				return nil
			})

			require.NoError(t, tt.m.RunMigrations(context.Background(), db))
			assert.Equal(t, tt.dir, gotDir)
		})
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db := newDB(t)
	stubGoose(t, func(string) error { return errors.New("boom") })

	err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
	assert.EqualError(t, err, "boom")
}

func TestIsPostgresDSN(t *testing.T) {
	assert.True(t, IsPostgresDSN("postgres://u:p@h/db"))
	assert.True(t, IsPostgresDSN("postgresql://h/db"))
	assert.False(t, IsPostgresDSN("data/app.db"))
	assert.False(t, IsPostgresDSN("file:x.db"))
}
