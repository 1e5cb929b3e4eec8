package apikeys

import "github.com/dmitrijs2005/keyproxy/internal/dbx"

const sqliteColumns = `id, user_id, encrypted_value, source, is_active, created_at`

var sqliteQueries = queries{
	list: `SELECT ` + sqliteColumns + ` FROM api_keys
		 WHERE user_id = ?
		 ORDER BY created_at, id`,
	get: `SELECT ` + sqliteColumns + ` FROM api_keys
		 WHERE user_id = ? AND id = ?`,
	first: `SELECT ` + sqliteColumns + ` FROM api_keys
		 WHERE user_id = ?
		 ORDER BY created_at, id
		 LIMIT 1`,
	insert: `INSERT INTO api_keys (id, user_id, encrypted_value, source, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	delete:      `DELETE FROM api_keys WHERE user_id = ? AND id = ?`,
	deleteAll:   `DELETE FROM api_keys WHERE user_id = ?`,
	clearActive: `UPDATE api_keys SET is_active = 0 WHERE user_id = ? AND is_active = 1`,
	markActive:  `UPDATE api_keys SET is_active = 1 WHERE user_id = ? AND id = ?`,
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries}
}
