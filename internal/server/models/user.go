package models

import "time"

// User is a login identity. The password is stored as a PBKDF2 hash with a
// per-user salt.
type User struct {
	ID           string
	UserName     string
	PasswordSalt string
	PasswordHash string
	CreatedAt    time.Time
}
