package models

import "time"

// Key sources.
const (
	SourceEnv    = "env"
	SourceCustom = "custom"
)

// APIKey is a stored upstream credential. EncryptedValue is a cipher token,
// never the raw key. At most one key per user is active.
type APIKey struct {
	ID             string
	UserID         string
	EncryptedValue string
	Source         string
	IsActive       bool
	CreatedAt      time.Time
}
