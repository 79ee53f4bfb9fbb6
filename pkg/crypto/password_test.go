package crypto

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashCompareRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := h.Compare(hash, "secret1"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := h.Compare(hash, "secret2"); !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestHashSaltsEveryCall(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	first, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatalf("expected distinct hashes for identical passwords")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	h := NewHasher(-1)
	if h.cost != DefaultCost {
		t.Fatalf("expected fallback to default cost, got %d", h.cost)
	}
	h = NewHasher(bcrypt.MaxCost + 1)
	if h.cost != DefaultCost {
		t.Fatalf("expected fallback to default cost, got %d", h.cost)
	}
	h = NewHasher(bcrypt.MinCost)
	if h.cost != bcrypt.MinCost {
		t.Fatalf("expected cost to be kept, got %d", h.cost)
	}
}
