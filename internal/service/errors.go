package service

import "errors"

var (
	// ErrInvalidCredentials covers bad secret, unknown email, inactive
	// and locked accounts at the external boundary; handlers never tell
	// these apart in a response body.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountInactive    = errors.New("account inactive")

	// Token failures are distinguished internally for logging and all
	// collapse to 401 externally.
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")

	ErrAccountConflict     = errors.New("account field conflict")
	ErrInvalidRole         = errors.New("invalid role")
	ErrInvalidAccountInput = errors.New("invalid account fields")
	ErrInvalidPurpose  = errors.New("invalid otp purpose")
	ErrOTPRateLimited  = errors.New("otp submissions rate limited")
	ErrLinkTokenInvalid = errors.New("invalid or expired link token")
)
