package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/config"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/ids"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/notify"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/repository"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/security"
)

// OTPStatus is the outcome of a validation attempt.
type OTPStatus int

const (
	OTPConsumed OTPStatus = iota
	OTPInvalid
	OTPExpired
)

type OTPService struct {
	accounts AccountStore
	codes    OTPStore
	limiter  *OTPLimiter
	notifier notify.Notifier
	recorder *ActivityRecorder
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewOTPService(
	accounts AccountStore,
	codes OTPStore,
	limiter *OTPLimiter,
	notifier notify.Notifier,
	recorder *ActivityRecorder,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *OTPService {
	return &OTPService{
		accounts: accounts,
		codes:    codes,
		limiter:  limiter,
		notifier: notifier,
		recorder: recorder,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Issue mints a fresh code for the account and purpose and requests
// delivery. Outstanding codes for the same purpose stay valid; they age
// out rather than being displaced.
func (s *OTPService) Issue(ctx context.Context, accountID string, purpose models.OTPPurpose) (string, error) {
	if !models.ValidOTPPurpose(purpose) {
		return "", ErrInvalidPurpose
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !account.Active {
		return "", ErrAccountInactive
	}

	value, err := security.GenerateOTPCode(s.cfg.Auth.OTPLength)
	if err != nil {
		return "", err
	}

	code := models.OTPCode{
		ID:        ids.New(),
		AccountID: account.ID,
		Code:      value,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(s.cfg.Auth.OTPTTL),
	}
	if err := s.codes.Create(ctx, code); err != nil {
		return "", err
	}

	// Delivery is best-effort; a dead queue must not block issuance.
	if err := s.notifier.Send(ctx, notify.Message{
		To:       account.Email,
		Template: "otp_" + string(purpose),
		Params:   map[string]string{"code": value},
	}); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("otp delivery enqueue failed")
	}

	s.recorder.Record(account.ID, models.ActionOTPRequested, map[string]string{
		"purpose": string(purpose),
	}, "", "")

	return value, nil
}

// Request resolves an email to an account and issues a code for it. An
// unknown or inactive address succeeds silently; the endpoint must not
// confirm which addresses hold accounts.
func (s *OTPService) Request(ctx context.Context, email string, purpose models.OTPPurpose) error {
	if !models.ValidOTPPurpose(purpose) {
		return ErrInvalidPurpose
	}

	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil
		}
		return err
	}
	if !account.Active {
		return nil
	}

	_, err = s.Issue(ctx, account.ID, purpose)
	return err
}

// VerifyByEmail resolves an email and validates a submitted code. An
// unknown address reports Invalid, indistinguishable from a wrong code.
func (s *OTPService) VerifyByEmail(ctx context.Context, email string, purpose models.OTPPurpose, submitted string) (OTPStatus, error) {
	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return OTPInvalid, nil
		}
		return OTPInvalid, err
	}

	return s.Validate(ctx, account.ID, purpose, submitted)
}

// Validate consumes the submitted code if it matches an unused,
// unexpired row for the account and purpose. The consume is a
// compare-and-set in the store, so two racing submissions of the same
// code cannot both see Consumed.
func (s *OTPService) Validate(ctx context.Context, accountID string, purpose models.OTPPurpose, submitted string) (OTPStatus, error) {
	if !models.ValidOTPPurpose(purpose) {
		return OTPInvalid, ErrInvalidPurpose
	}

	if !s.limiter.Allow(ctx, accountID, string(purpose)) {
		return OTPInvalid, ErrOTPRateLimited
	}

	now := s.now()

	won, err := s.codes.Consume(ctx, accountID, purpose, submitted, now)
	if err != nil {
		return OTPInvalid, err
	}
	if won {
		s.recorder.Record(accountID, models.ActionOTPConsumed, map[string]string{
			"purpose": string(purpose),
		}, "", "")
		return OTPConsumed, nil
	}

	expired, err := s.codes.HasExpiredMatch(ctx, accountID, purpose, submitted, now)
	if err != nil {
		return OTPInvalid, err
	}
	if expired {
		return OTPExpired, nil
	}
	return OTPInvalid, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
