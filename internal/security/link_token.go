package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Link tokens back the email-verification and password-reset links. They
// are signed so the emailed URL is self-describing, and their digest is
// additionally stored on the account row to enforce single use.
type LinkClaims struct {
	AccountID string `json:"aid"`
	Kind      string `json:"kind"`
	jwt.RegisteredClaims
}

const (
	LinkKindVerify = "verify"
	LinkKindReset  = "reset"
)

func GenerateLinkToken(secret string, accountID string, kind string, ttl time.Duration) (string, []byte, error) {
	now := time.Now()
	claims := LinkClaims{
		AccountID: accountID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   accountID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", nil, fmt.Errorf("sign link token: %w", err)
	}
	return signed, DigestToken(signed), nil
}

func ParseLinkToken(tokenStr string, secret string) (*LinkClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &LinkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*LinkClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid link token")
}
