package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/jmcleod/phantom/internal/util"
)

const (
	DefaultBcryptCost = 10
	// maxPasswordBytes is bcrypt's input limit; longer inputs would be
	// silently truncated by other implementations.
	maxPasswordBytes = 72
)

// PasswordHasher produces and verifies salted bcrypt digests.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher with the given bcrypt cost. Costs
// outside bcrypt's accepted range fall back to DefaultBcryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns a bcrypt digest of the normalized password. Each call uses
// a fresh salt, so hashing the same input twice gives different digests.
func (h *PasswordHasher) Hash(password string) (string, error) {
	normalized := util.Normalize(password)
	if len(normalized) > maxPasswordBytes {
		return "", validationError("password", "must be at most %d bytes", maxPasswordBytes)
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(normalized), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. A malformed digest
// never verifies.
func (h *PasswordHasher) Verify(password, digest string) bool {
	if digest == "" {
		return false
	}
	normalized := util.Normalize(password)
	if len(normalized) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(normalized)) == nil
}
