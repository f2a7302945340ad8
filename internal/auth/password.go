package auth

import (
	"fmt"
	"sync"

	"github.com/shoenig/go-conceal"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the bcrypt work factor used unless configured otherwise.
	DefaultCost = 10

	// MaxPasswordBytes is the longest input bcrypt will digest.
	MaxPasswordBytes = 72
)

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost int

	decoyOnce sync.Once
	decoy     []byte
}

// NewHasher returns a Hasher for cost, which must lie within bcrypt's bounds.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted bcrypt digest of password.
func (h *Hasher) Hash(password *conceal.Text) (string, error) {
	if password == nil {
		return "", ErrEmptyPassword
	}
	raw := password.Unveil()
	if raw == "" {
		return "", ErrEmptyPassword
	}
	if len(raw) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. Mismatches, empty or
// over-long input and malformed digests all yield false.
func (h *Hasher) Verify(password *conceal.Text, digest string) bool {
	if password == nil || digest == "" {
		return false
	}
	raw := password.Unveil()
	// bcrypt ignores input past MaxPasswordBytes, so a longer candidate would
	// match any stored password it extends.
	if raw == "" || len(raw) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(raw)) == nil
}

// Decoy runs a comparison against a throwaway digest of the same cost, so a
// caller with no stored digest spends the same time as a real verification.
// It always returns false.
func (h *Hasher) Decoy(password *conceal.Text) bool {
	h.decoyOnce.Do(func() {
		// Error ignored: the input is fixed and well under the length limit.
		h.decoy, _ = bcrypt.GenerateFromPassword([]byte("matchbook-decoy-password"), h.cost)
	})
	if password != nil {
		_ = bcrypt.CompareHashAndPassword(h.decoy, []byte(password.Unveil()))
	}
	return false
}
