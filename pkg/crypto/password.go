package crypto

import "golang.org/x/crypto/bcrypt"

// DefaultCost is the bcrypt work factor used in production.
const DefaultCost = 12

// Hasher derives and verifies salted password hashes using bcrypt.
// The cost is fixed at construction so tests can substitute a cheap one.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. Costs outside the
// range bcrypt supports fall back to DefaultCost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return Hasher{cost: cost}
}

// Hash computes a one-way hash of plaintext with a fresh random salt.
func (h Hasher) Hash(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), h.cost)
}

// Compare verifies plaintext against a stored hash in constant time.
// It returns bcrypt.ErrMismatchedHashAndPassword when they do not match.
func (h Hasher) Compare(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
