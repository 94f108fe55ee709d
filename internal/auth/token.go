package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const secretBytes = 32

// NewSecret returns a fresh 256-bit refresh secret, URL-safe encoded. The
// value is an opaque bearer string; it travels only inside the session cookie
// and is never persisted or logged.
func NewSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSecret returns the lower-case hex SHA-256 digest stored in place of the
// secret. The digest is byte-stable across processes so lookups by hash work
// against any replica. No salt: the secret is high-entropy and never reused.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
