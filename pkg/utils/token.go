package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSecureToken returns byteLen random bytes hex-encoded, so the result
// is 2*byteLen characters long.
func GenerateSecureToken(byteLen int) (string, error) {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GenerateShareToken produces the 64-character opaque token that acts as the
// sole credential for unauthenticated share access.
func GenerateShareToken() (string, error) {
	return GenerateSecureToken(32)
}
