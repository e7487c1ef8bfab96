package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const (
	rawTokenBytes = 32
	// Raw tokens travel inside URLs; bounds keep lookups cheap and reject
	// garbage before hashing.
	MinRawTokenLen = 10
	MaxRawTokenLen = 300
)

var ErrInvalidTokenFormat = errors.New("invalid token format")

// NewRawSigningToken draws a 256-bit random value encoded URL-safe. The raw
// value is handed to the caller once and never persisted.
func NewRawSigningToken() (string, error) {
	b := make([]byte, rawTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSigningToken derives the only stored representation of a raw token.
func HashSigningToken(raw, pepper string) string {
	h := sha256.Sum256([]byte(raw + ":" + pepper))
	return hex.EncodeToString(h[:])
}

// ValidateRawTokenFormat bounds the input before any hashing or lookup.
func ValidateRawTokenFormat(raw string) error {
	if len(raw) < MinRawTokenLen || len(raw) > MaxRawTokenLen {
		return ErrInvalidTokenFormat
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return ErrInvalidTokenFormat
		}
	}
	return nil
}
