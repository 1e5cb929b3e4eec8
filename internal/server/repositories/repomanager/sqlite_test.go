package repomanager

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteFileAndMigrate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "app.db")

	db, m, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, DialectSQLite, m.Dialect())

	require.NoError(t, m.RunMigrations(ctx, db))
	// second run is a no-op
	require.NoError(t, m.RunMigrations(ctx, db))

	for _, table := range []string{"users", "api_keys", "usage_stats"} {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func Test_sqliteDSN(t *testing.T) {
	got, err := sqliteDSN("file:already.db?mode=ro")
	require.NoError(t, err)
	assert.Equal(t, "file:already.db?mode=ro", got)

	got, err = sqliteDSN(":memory:")
	require.NoError(t, err)
	assert.Equal(t, "file::memory:?"+sqlitePragmas, got)
}
