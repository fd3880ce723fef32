package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const bearerTokenBytes = 32

// GenerateBearerToken returns a fresh opaque bearer token and the
// SHA-256 digest under which it is persisted. The plaintext never
// touches the database.
func GenerateBearerToken() (string, []byte, error) {
	buf := make([]byte, bearerTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate bearer token: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, DigestToken(token), nil
}

func DigestToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
