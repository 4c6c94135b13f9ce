package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-session-auth/repository"
)

func TestHasher(t *testing.T) {
	h := repository.NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("password123")
	require.NoError(t, err)

	assert.NoError(t, h.Compare("password123", hash))
	assert.ErrorIs(t, h.Compare("password124", hash), repository.ErrMismatchedCredential)
	assert.Error(t, h.Compare("password123", "not-a-hash"))

	_, err = h.Hash("")
	assert.ErrorIs(t, err, repository.ErrEmptyCredential)

	assert.NotPanics(t, func() { h.CompareDummy("anything") })
}

func TestNewHasherClampsCost(t *testing.T) {
	h := repository.NewHasher(1)
	hash, err := h.Hash("x")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}
