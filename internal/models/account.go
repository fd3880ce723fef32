package models

import "time"

type Role string

const (
	RoleAdmin          Role = "admin"
	RoleLeadCalibrator Role = "lead_calibrator"
	RoleCalibrator     Role = "calibrator"
	RoleViewer         Role = "viewer"
)

// ValidRole reports whether r is one of the four known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleLeadCalibrator, RoleCalibrator, RoleViewer:
		return true
	}
	return false
}

type Account struct {
	ID           string
	Email        string
	SecretHash   []byte
	Name         string
	Role         Role
	EmployeeID   *string
	Active       bool
	Verified     bool

	FailedAttempts int
	LockedUntil    *time.Time

	// Digest+expiry of the outstanding email-verification and
	// password-reset link tokens. Single use: cleared on consumption.
	VerifyTokenDigest []byte
	VerifyTokenExpiry *time.Time
	ResetTokenDigest  []byte
	ResetTokenExpiry  *time.Time

	LastLoginAt *time.Time
	CreatedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Locked reports whether the account is lock-barred at the given instant.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// Scrub returns a copy with the secret material removed. Accounts must
// never cross the service boundary carrying hashes.
func (a Account) Scrub() Account {
	a.SecretHash = nil
	a.VerifyTokenDigest = nil
	a.ResetTokenDigest = nil
	return a
}
