package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPasswordWithParams("a strong passphrase", fastParams)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotContains(t, string(hash), "a strong passphrase")

	ok, err := VerifyPassword("a strong passphrase", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPasswordWrongSecret(t *testing.T) {
	hash, err := HashPasswordWithParams("a strong passphrase", fastParams)
	require.NoError(t, err)

	ok, err := VerifyPassword("a wrong passphrase", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	first, err := HashPasswordWithParams("same input", fastParams)
	require.NoError(t, err)
	second, err := HashPasswordWithParams("same input", fastParams)
	require.NoError(t, err)

	assert.NotEqual(t, string(first), string(second))
}

func TestVerifyPasswordGarbageHash(t *testing.T) {
	_, err := VerifyPassword("anything", []byte("not-a-hash"))
	assert.Error(t, err)
}
