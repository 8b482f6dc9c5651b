package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// NewOpaque generates a cryptographically random 64-character hex token.
// Used for refresh tokens and verification tickets; the raw value is handed
// to the caller once and only its hash (for refresh tokens) is persisted.
func NewOpaque() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate opaque token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Hash returns the hex-encoded SHA-256 digest of a raw token. Tokens are
// high-entropy, so an unsalted fast hash is sufficient and keeps storage
// lookups exact-match.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
