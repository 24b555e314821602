package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewState generates a cryptographically random 32-character hex value used
// as the OAuth state parameter.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
