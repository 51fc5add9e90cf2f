package auth

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordService wraps bcrypt with a fixed cost factor and a decoy digest
// used to equalize timing on the user-not-found path.
type PasswordService struct {
	cost  int
	decoy []byte
}

// NewPasswordService builds a password service. Costs outside bcrypt's
// accepted range fall back to the library default. The decoy digest is
// computed once, at the same cost as real digests, so a comparison against
// it takes as long as a comparison against a stored one.
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	filler := make([]byte, 32)
	if _, err := rand.Read(filler); err != nil {
		return nil, fmt.Errorf("generate decoy filler: %w", err)
	}
	decoy, err := bcrypt.GenerateFromPassword(filler, cost)
	if err != nil {
		return nil, fmt.Errorf("generate decoy digest: %w", err)
	}
	return &PasswordService{cost: cost, decoy: decoy}, nil
}

// Hash derives a digest suitable for persistence.
func (s *PasswordService) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest.
func (s *PasswordService) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// VerifyDecoy burns a full bcrypt comparison against the decoy digest. It
// always reports false. Callers invoke it on the account-not-found path so
// that path is not measurably faster than a real mismatch.
func (s *PasswordService) VerifyDecoy(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword(s.decoy, []byte(plaintext))
	return false
}
