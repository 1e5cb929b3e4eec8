// Package cryptox holds the symmetric cipher used for stored API keys,
// password hashing and display masking.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

var errShortToken = errors.New("token too short")

// Cipher encrypts short secret strings with AES-256-GCM.
//
// The key is sha256(secret), so the same secret always yields a cipher able to
// read previously stored tokens. A token is base64url(nonce || ciphertext).
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the key from secret and prepares the AEAD.
func NewCipher(secret string) (*Cipher, error) {
	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt returns the token for plaintext. Empty input yields an empty token.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt is fail-soft: a malformed, truncated or tampered token, or one sealed
// under a different secret, yields "".
func (c *Cipher) Decrypt(token string) string {
	s, err := c.open(token)
	if err != nil {
		return ""
	}
	return s
}

func (c *Cipher) open(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}

	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", errShortToken
	}

	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
