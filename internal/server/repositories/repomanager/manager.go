// Package repomanager vends dialect-specific repositories and runs the
// schema migrations for the chosen backend.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/keyproxy/internal/dbx"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/usage"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

// Backend names.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type RepositoryManager interface {
	Dialect() string
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	APIKeys(db dbx.DBTX) apikeys.Repository
	Usage(db dbx.DBTX) usage.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}
