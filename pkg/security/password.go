// Package security holds the credential hashing used for operator
// accounts. Operators authenticate with email and password; only the
// bcrypt hash is ever stored.
package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest operator password Hash will accept.
const MinPasswordLen = 8

var (
	ErrHashingFailed    = errors.New("password hashing failed")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
)

// PasswordHasher hashes and verifies operator credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt-backed PasswordHasher. Costs outside
// the bcrypt range fall back to the library default, so callers can pass
// zero to mean "use the default".
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", ErrPasswordTooShort
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

// Compare returns nil when password matches the stored hash.
func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
