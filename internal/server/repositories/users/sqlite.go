package users

import "github.com/dmitrijs2005/keyproxy/internal/dbx"

// SQLite has no row locks and serialises writers on the database file, so
// lock only checks that the user exists.
var sqliteQueries = queries{
	createIfAbsent: `INSERT INTO users (id, username, password_salt, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (username) DO NOTHING`,
	byUsername: `SELECT id, username, password_salt, password_hash, created_at FROM users
		 WHERE username = ?`,
	byID: `SELECT id, username, password_salt, password_hash, created_at FROM users
		 WHERE id = ?`,
	lock: `SELECT id FROM users WHERE id = ?`,
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries}
}
