package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/config"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/ids"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/repository"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/security"
)

type AuthService struct {
	accounts AccountStore
	tokens   TokenStore
	recorder *ActivityRecorder
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	accounts AccountStore,
	tokens TokenStore,
	recorder *ActivityRecorder,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		recorder: recorder,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type LoginInput struct {
	Email      string
	Password   string
	DeviceInfo string
	Origin     string
	UserAgent  string
}

type LoginResult struct {
	Token   string
	Account models.Account
}

// Login runs the full credential flow: account lookup, lifecycle and
// lockout checks, slow hash verification, failure bookkeeping, token
// mint. Every failure path surfaces to the handler as an error the
// response layer renders generically.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	now := s.now()

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !account.Active {
		s.log.Warn().Str("account_id", account.ID).Msg("login attempt on inactive account")
		return LoginResult{}, ErrAccountInactive
	}

	if account.Locked(now) {
		// Locked accounts reject even a correct secret; the hash is
		// not consulted at all.
		s.log.Warn().Str("account_id", account.ID).Msg("login attempt on locked account")
		return LoginResult{}, ErrAccountLocked
	}

	ok, err := security.VerifyPassword(input.Password, account.SecretHash)
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{}, s.handleFailedVerification(ctx, account, input, now)
	}

	if account.FailedAttempts > 0 || account.LockedUntil != nil {
		if err := s.accounts.ResetLockout(ctx, account.ID); err != nil {
			return LoginResult{}, err
		}
	}

	token, err := s.issueToken(ctx, account.ID, input.DeviceInfo, input.Origin, now)
	if err != nil {
		return LoginResult{}, err
	}

	if err := s.accounts.SetLastLogin(ctx, account.ID, now); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("set last login failed")
	}

	s.recorder.Record(account.ID, models.ActionLogin, map[string]string{
		"device": input.DeviceInfo,
	}, input.Origin, input.UserAgent)

	return LoginResult{Token: token, Account: account.Scrub()}, nil
}

// handleFailedVerification updates the lockout counter synchronously
// before the failure is returned, so concurrent attempts can never slip
// past a lock the store has already committed.
func (s *AuthService) handleFailedVerification(ctx context.Context, account models.Account, input LoginInput, now time.Time) error {
	lockUntil := now.Add(s.cfg.Auth.LockoutDuration)
	attempts, locked, err := s.accounts.RecordLoginFailure(ctx, account.ID, s.cfg.Auth.LockoutThreshold, lockUntil, now)
	if err != nil {
		return err
	}

	s.recorder.Record(account.ID, models.ActionLoginFailed, map[string]string{
		"attempts": strconv.Itoa(attempts),
	}, input.Origin, input.UserAgent)

	if locked {
		s.recorder.Record(account.ID, models.ActionLockout, nil, input.Origin, input.UserAgent)
		s.log.Warn().Str("account_id", account.ID).Int("attempts", attempts).Msg("account locked")
	}

	return ErrInvalidCredentials
}

func (s *AuthService) issueToken(ctx context.Context, accountID, deviceInfo, origin string, now time.Time) (string, error) {
	token, digest, err := security.GenerateBearerToken()
	if err != nil {
		return "", err
	}

	row := models.AuthToken{
		ID:         ids.New(),
		AccountID:  accountID,
		Digest:     digest,
		DeviceInfo: deviceInfo,
		Origin:     origin,
		ExpiresAt:  now.Add(s.cfg.Auth.TokenTTL),
	}

	if err := s.tokens.Create(ctx, row); err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate resolves a presented bearer token. Validity is the
// conjunction of an unexpired row, no revocation, and an active owning
// account; the returned account carries no secret material.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (models.Account, error) {
	token, err := s.tokens.FindByDigest(ctx, security.DigestToken(tokenStr))
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return models.Account{}, ErrTokenInvalid
		}
		return models.Account{}, err
	}

	if token.Expired(s.now()) {
		return models.Account{}, ErrTokenExpired
	}
	if token.Revoked {
		return models.Account{}, ErrTokenRevoked
	}

	account, err := s.accounts.GetByID(ctx, token.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return models.Account{}, ErrTokenInvalid
		}
		return models.Account{}, err
	}
	if !account.Active {
		return models.Account{}, ErrAccountInactive
	}

	return account.Scrub(), nil
}

// Logout revokes the presented token. Revoking an unknown or
// already-revoked token is a no-op so the endpoint leaks nothing about
// which tokens exist.
func (s *AuthService) Logout(ctx context.Context, tokenStr, origin, userAgent string) error {
	digest := security.DigestToken(tokenStr)

	token, err := s.tokens.FindByDigest(ctx, digest)
	known := err == nil

	if err := s.tokens.Revoke(ctx, digest); err != nil {
		return err
	}

	if known {
		s.recorder.Record(token.AccountID, models.ActionLogout, nil, origin, userAgent)
	}
	return nil
}
