package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOTPCode draws a uniform random number in [0, 10^length) and
// zero-pads it, so every fixed-length numeric string is equally likely.
func GenerateOTPCode(length int) (string, error) {
	if length <= 0 || length > 12 {
		return "", fmt.Errorf("otp length out of range: %d", length)
	}

	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}
