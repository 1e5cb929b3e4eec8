package users

import "github.com/dmitrijs2005/keyproxy/internal/dbx"

var postgresQueries = queries{
	createIfAbsent: `INSERT INTO users (id, username, password_salt, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (username) DO NOTHING`,
	byUsername: `SELECT id, username, password_salt, password_hash, created_at FROM users
		 WHERE username = $1`,
	byID: `SELECT id, username, password_salt, password_hash, created_at FROM users
		 WHERE id = $1`,
	lock: `SELECT id FROM users WHERE id = $1 FOR UPDATE`,
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries}
}
