package repository

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used for stored credentials
const DefaultCost = 12

var (
	ErrEmptyCredential      = errors.New("credential cannot be empty")
	ErrEmptyLogin           = errors.New("login cannot be empty")
	ErrMismatchedCredential = errors.New("credential does not match hash")
)

// Hasher hashes and compares credentials with bcrypt
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher with cost clamped to the bcrypt range
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash will generate a credential hash
func (h *Hasher) Hash(credential string) (string, error) {
	if credential == "" {
		return "", ErrEmptyCredential
	}
	out, err := bcrypt.GenerateFromPassword([]byte(credential), h.cost)
	return string(out), err
}

// Compare will validate the cleartext credential matches hash
func (h *Hasher) Compare(credential, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedCredential
		}
		return err
	}
	return nil
}

// CompareDummy runs a comparison against a random hash of the same cost
func (h *Hasher) CompareDummy(credential string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(credential))
}
