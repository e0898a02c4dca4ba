package invite

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes gives 128 bits of randomness, enough that guessing a join
// token is infeasible.
const tokenBytes = 16

// NewToken returns an opaque, unguessable join token.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
