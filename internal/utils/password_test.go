package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pass1234", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, "pass1234", hash)
	assert.NotContains(t, hash, "pass1234")
	assert.True(t, CheckPasswordHash("pass1234", hash))
	assert.False(t, CheckPasswordHash("pass12345", hash))
}

func TestHashPasswordDefaultCost(t *testing.T) {
	hash, err := HashPassword("pass1234", 0)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)
}
