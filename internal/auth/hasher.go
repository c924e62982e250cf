package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// ErrPasswordTooLong is returned when a password exceeds the bcrypt input limit.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) ([]byte, error)
	Verify(digest []byte, password string) bool
}

// BcryptHasher is a Hasher backed by bcrypt with a fixed cost factor.
type BcryptHasher struct {
	cost int
}

// Ensure BcryptHasher implements Hasher
var _ Hasher = (*BcryptHasher)(nil)

// NewBcryptHasher creates a bcrypt hasher. A zero cost selects bcrypt.DefaultCost;
// other values are clamped to the range bcrypt supports.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the cost factor new digests are produced with.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt digest of password.
func (h *BcryptHasher) Hash(password string) ([]byte, error) {
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return digest, nil
}

// Verify reports whether password matches digest. Malformed digests never match.
func (h *BcryptHasher) Verify(digest []byte, password string) bool {
	if len(digest) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(digest, []byte(password)) == nil
}
