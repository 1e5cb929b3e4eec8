// Package repotest provides database fixtures for repository and store tests.
package repotest

import (
	"context"
	"database/sql"
	"io/fs"
	"strings"
	"testing"

	"github.com/dmitrijs2005/keyproxy/internal/server/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// NewSQLiteDB opens a private in-memory SQLite database with the schema
// applied. It is closed when the test ends.
func NewSQLiteDB(t testing.TB) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	sub, err := fs.Sub(migrations.Migrations, migrations.SQLiteDir)
	require.NoError(t, err)

	p, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	require.NoError(t, err)
	_, err = p.Up(context.Background())
	require.NoError(t, err)

	return db
}

// InsertUser adds a bare user row and returns its id.
func InsertUser(t testing.TB, db *sql.DB, id, username string) string {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, username, password_salt, password_hash, created_at) VALUES (?, ?, 'salt', 'hash', CURRENT_TIMESTAMP)`, id, username)
	require.NoError(t, err)
	return id
}
