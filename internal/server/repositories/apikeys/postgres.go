package apikeys

import "github.com/dmitrijs2005/keyproxy/internal/dbx"

const pgColumns = `id, user_id, encrypted_value, source, is_active, created_at`

var postgresQueries = queries{
	list: `SELECT ` + pgColumns + ` FROM api_keys
		 WHERE user_id = $1
		 ORDER BY created_at, id`,
	get: `SELECT ` + pgColumns + ` FROM api_keys
		 WHERE user_id = $1 AND id = $2`,
	first: `SELECT ` + pgColumns + ` FROM api_keys
		 WHERE user_id = $1
		 ORDER BY created_at, id
		 LIMIT 1`,
	insert: `INSERT INTO api_keys (id, user_id, encrypted_value, source, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
	delete:      `DELETE FROM api_keys WHERE user_id = $1 AND id = $2`,
	deleteAll:   `DELETE FROM api_keys WHERE user_id = $1`,
	clearActive: `UPDATE api_keys SET is_active = FALSE WHERE user_id = $1 AND is_active`,
	markActive:  `UPDATE api_keys SET is_active = TRUE WHERE user_id = $1 AND id = $2`,
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries}
}
