package models

import "time"

// AuthToken is one issued bearer credential. Only the SHA-256 digest of
// the opaque value is stored; the plaintext exists exactly once, in the
// login response.
type AuthToken struct {
	ID         string
	AccountID  string
	Digest     []byte
	DeviceInfo string
	Origin     string
	ExpiresAt  time.Time
	Revoked    bool
	CreatedAt  time.Time
}

func (t AuthToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
