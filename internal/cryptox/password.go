package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/dmitrijs2005/keyproxy/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	PasswordIterations = 120_000
	PasswordKeyLen     = 32
	SaltSize           = 16
)

// NewSalt returns a fresh random salt, base64 encoded for storage.
func NewSalt() string {
	return base64.StdEncoding.EncodeToString(common.GenerateRandByteArray(SaltSize))
}

// HashPassword derives the stored hash for password and salt (PBKDF2-SHA256).
func HashPassword(password, salt string) string {
	dk := pbkdf2.Key([]byte(password), []byte(salt), PasswordIterations, PasswordKeyLen, sha256.New)
	return base64.StdEncoding.EncodeToString(dk)
}

// VerifyPassword recomputes the hash and compares in constant time.
func VerifyPassword(password, salt, hash string) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}
