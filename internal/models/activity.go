package models

import "time"

// Activity action vocabulary. The column is free-form text but writers
// stick to these tags.
const (
	ActionLogin          = "login"
	ActionLoginFailed    = "login_failed"
	ActionLogout         = "logout"
	ActionLockout        = "lockout"
	ActionUnlock         = "unlock"
	ActionPasswordChange = "password_change"
	ActionPasswordReset  = "password_reset"
	ActionEmailVerified  = "email_verified"
	ActionOTPRequested   = "otp_requested"
	ActionOTPConsumed    = "otp_consumed"
	ActionAccountCreated = "account_created"
)

// ActivityRecord is one append-only security event.
type ActivityRecord struct {
	ID        string
	AccountID string
	Action    string
	Detail    map[string]string
	Origin    string
	UserAgent string
	CreatedAt time.Time
}
