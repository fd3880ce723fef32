package models

import "time"

type OTPPurpose string

const (
	OTPPurposeLogin        OTPPurpose = "login"
	OTPPurposeVerification OTPPurpose = "verification"
	OTPPurposeReset        OTPPurpose = "reset"
)

func ValidOTPPurpose(p OTPPurpose) bool {
	switch p {
	case OTPPurposeLogin, OTPPurposeVerification, OTPPurposeReset:
		return true
	}
	return false
}

// OTPCode is a short-lived numeric passcode scoped to one account and
// one purpose. Rows are written once and flipped to used on consumption,
// never otherwise updated.
type OTPCode struct {
	ID        string
	AccountID string
	Code      string
	Purpose   OTPPurpose
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func (c OTPCode) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
