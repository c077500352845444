package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, checkPassword(hash, "correct horse battery staple"))
	assert.False(t, checkPassword(hash, "wrong password"))
	assert.False(t, checkPassword(hash, ""))
}

func TestCheckPasswordRejectsPlaintextStored(t *testing.T) {
	// A stored plaintext value must never verify; every role goes through
	// the same bcrypt path.
	assert.False(t, checkPassword("plaintext-not-a-hash", "plaintext-not-a-hash"))
}
