package usage

import "github.com/dmitrijs2005/keyproxy/internal/dbx"

var postgresQueries = queries{
	increment: `INSERT INTO usage_stats (user_id, total_calls, last_used_at)
		 VALUES ($1, 1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET total_calls = usage_stats.total_calls + 1,
		     last_used_at = EXCLUDED.last_used_at`,
	get: `SELECT user_id, total_calls, last_used_at FROM usage_stats
		 WHERE user_id = $1`,
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries}
}
