package security

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

const (
	tokenBytes = 20

	// ResetTokenTTL is how long a password reset link stays usable
	ResetTokenTTL = time.Hour
)

// GenerateToken returns an opaque single-use token, 40 hex characters long
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)

	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

func ResetExpiry(now time.Time) time.Time {
	return now.Add(ResetTokenTTL)
}
