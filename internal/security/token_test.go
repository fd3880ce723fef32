package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBearerTokenDigestRoundTrip(t *testing.T) {
	token, digest, err := GenerateBearerToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, digest, DigestToken(token))
}

func TestGenerateBearerTokenUnique(t *testing.T) {
	first, _, err := GenerateBearerToken()
	require.NoError(t, err)
	second, _, err := GenerateBearerToken()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestGenerateOTPCodeShape(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code, err := GenerateOTPCode(length)
		require.NoError(t, err)
		require.Len(t, code, length)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q contains non-digit", code)
		}
	}
}

func TestGenerateOTPCodeRejectsBadLength(t *testing.T) {
	_, err := GenerateOTPCode(0)
	assert.Error(t, err)
	_, err = GenerateOTPCode(20)
	assert.Error(t, err)
}

func TestLinkTokenRoundTrip(t *testing.T) {
	token, digest, err := GenerateLinkToken("secret", "acc-1", LinkKindReset, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, digest, DigestToken(token))

	claims, err := ParseLinkToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, LinkKindReset, claims.Kind)
}

func TestLinkTokenWrongSecretRejected(t *testing.T) {
	token, _, err := GenerateLinkToken("secret", "acc-1", LinkKindVerify, time.Hour)
	require.NoError(t, err)

	_, err = ParseLinkToken(token, "other-secret")
	assert.Error(t, err)
}

func TestLinkTokenExpiryRejected(t *testing.T) {
	token, _, err := GenerateLinkToken("secret", "acc-1", LinkKindVerify, -time.Minute)
	require.NoError(t, err)

	_, err = ParseLinkToken(token, "secret")
	assert.Error(t, err)
}
