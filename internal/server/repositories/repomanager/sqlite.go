package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/keyproxy/internal/dbx"
	"github.com/dmitrijs2005/keyproxy/internal/server/migrations"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/usage"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Dialect() string { return DialectSQLite }

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) APIKeys(db dbx.DBTX) apikeys.Repository {
	return apikeys.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Usage(db dbx.DBTX) usage.Repository {
	return usage.NewSQLiteRepository(db)
}

// RunMigrations applies the embedded sqlite migrations.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.SQLiteDir)
}
