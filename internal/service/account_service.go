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

type AccountService struct {
	accounts   AccountStore
	tokens     TokenStore
	activity   ActivityStore
	notifier   notify.Notifier
	recorder   *ActivityRecorder
	cfg        *config.AppConfig
	hashParams security.Argon2Params
	log        zerolog.Logger
	now        func() time.Time
}

func NewAccountService(
	accounts AccountStore,
	tokens TokenStore,
	activity ActivityStore,
	notifier notify.Notifier,
	recorder *ActivityRecorder,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AccountService {
	params := security.DefaultArgon2Params
	if cfg.Argon2.Time > 0 {
		params.Time = cfg.Argon2.Time
	}
	if cfg.Argon2.Memory > 0 {
		params.Memory = cfg.Argon2.Memory
	}
	if cfg.Argon2.Threads > 0 {
		params.Threads = cfg.Argon2.Threads
	}

	return &AccountService{
		accounts:   accounts,
		tokens:     tokens,
		activity:   activity,
		notifier:   notifier,
		recorder:   recorder,
		cfg:        cfg,
		hashParams: params,
		log:        log,
		now:        time.Now,
	}
}

// Bootstrap seeds the first admin account on an empty store. Idempotent:
// any existing admin, active or not, suppresses seeding, and a racing
// duplicate insert is treated as someone else having seeded first.
func (s *AccountService) Bootstrap(ctx context.Context) error {
	exists, err := s.accounts.AdminExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := security.HashPasswordWithParams(s.cfg.Bootstrap.AdminPassword, s.hashParams)
	if err != nil {
		return err
	}

	admin := models.Account{
		ID:         ids.New(),
		Email:      strings.ToLower(s.cfg.Bootstrap.AdminEmail),
		SecretHash: hash,
		Name:       "Administrator",
		Role:       models.RoleAdmin,
		Active:     true,
		Verified:   true,
	}

	if err := s.accounts.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			return nil
		}
		return err
	}

	s.log.Info().Str("email", admin.Email).Msg("bootstrap admin seeded")
	return nil
}

type CreateAccountInput struct {
	Email      string
	Password   string
	Name       string
	Role       models.Role
	EmployeeID *string
	CreatedBy  string
}

func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (models.Account, error) {
	if !models.ValidRole(input.Role) {
		return models.Account{}, ErrInvalidRole
	}

	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		return models.Account{}, ErrInvalidAccountInput
	}

	hash, err := security.HashPasswordWithParams(input.Password, s.hashParams)
	if err != nil {
		return models.Account{}, err
	}

	account := models.Account{
		ID:         ids.New(),
		Email:      email,
		SecretHash: hash,
		Name:       input.Name,
		Role:       input.Role,
		EmployeeID: input.EmployeeID,
		Active:     true,
	}
	if input.CreatedBy != "" {
		account.CreatedBy = &input.CreatedBy
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			return models.Account{}, ErrAccountConflict
		}
		return models.Account{}, err
	}

	s.recorder.Record(account.ID, models.ActionAccountCreated, map[string]string{
		"role":       string(account.Role),
		"created_by": input.CreatedBy,
	}, "", "")

	return account.Scrub(), nil
}

// Unlock is the administrative exit from the lockout state machine: the
// counter and lock clear immediately.
func (s *AccountService) Unlock(ctx context.Context, accountID, adminID string) error {
	if err := s.accounts.ResetLockout(ctx, accountID); err != nil {
		return err
	}

	s.recorder.Record(accountID, models.ActionUnlock, map[string]string{
		"by": adminID,
	}, "", "")
	return nil
}

// SetActive toggles the lifecycle flag. Deactivation also revokes every
// outstanding token so existing sessions die with the account.
func (s *AccountService) SetActive(ctx context.Context, accountID string, active bool) error {
	if err := s.accounts.SetActive(ctx, accountID, active); err != nil {
		return err
	}
	if !active {
		if err := s.tokens.RevokeAllForAccount(ctx, accountID); err != nil {
			return err
		}
	}
	return nil
}

// RequestPasswordReset issues a signed reset link token. An unknown
// email succeeds silently; the endpoint must not confirm which
// addresses hold accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil
		}
		return err
	}
	if !account.Active {
		return nil
	}

	token, digest, err := security.GenerateLinkToken(s.cfg.Auth.LinkTokenSecret, account.ID, security.LinkKindReset, s.cfg.Auth.LinkTokenTTL)
	if err != nil {
		return err
	}

	if err := s.accounts.SetResetArtifact(ctx, account.ID, digest, s.now().Add(s.cfg.Auth.LinkTokenTTL)); err != nil {
		return err
	}

	if err := s.notifier.Send(ctx, notify.Message{
		To:       account.Email,
		Template: "password_reset",
		Params:   map[string]string{"token": token},
	}); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("reset delivery enqueue failed")
	}
	return nil
}

// ResetPassword consumes a reset link token and replaces the secret.
// Every outstanding bearer token is revoked afterwards.
func (s *AccountService) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	claims, err := security.ParseLinkToken(tokenStr, s.cfg.Auth.LinkTokenSecret)
	if err != nil || claims.Kind != security.LinkKindReset {
		return ErrLinkTokenInvalid
	}

	won, err := s.accounts.ConsumeResetArtifact(ctx, claims.AccountID, security.DigestToken(tokenStr), s.now())
	if err != nil {
		return err
	}
	if !won {
		return ErrLinkTokenInvalid
	}

	hash, err := security.HashPasswordWithParams(newPassword, s.hashParams)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdateSecretHash(ctx, claims.AccountID, hash); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForAccount(ctx, claims.AccountID); err != nil {
		s.log.Warn().Err(err).Str("account_id", claims.AccountID).Msg("token revocation after reset failed")
	}

	s.recorder.Record(claims.AccountID, models.ActionPasswordReset, nil, "", "")
	return nil
}

// ChangePassword replaces the secret for an authenticated account after
// re-verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, current, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(current, account.SecretHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := security.HashPasswordWithParams(newPassword, s.hashParams)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdateSecretHash(ctx, accountID, hash); err != nil {
		return err
	}

	s.recorder.Record(accountID, models.ActionPasswordChange, nil, "", "")
	return nil
}

// RequestEmailVerification issues a signed verification link token.
func (s *AccountService) RequestEmailVerification(ctx context.Context, accountID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Verified {
		return nil
	}

	token, digest, err := security.GenerateLinkToken(s.cfg.Auth.LinkTokenSecret, account.ID, security.LinkKindVerify, s.cfg.Auth.LinkTokenTTL)
	if err != nil {
		return err
	}

	if err := s.accounts.SetVerifyArtifact(ctx, account.ID, digest, s.now().Add(s.cfg.Auth.LinkTokenTTL)); err != nil {
		return err
	}

	if err := s.notifier.Send(ctx, notify.Message{
		To:       account.Email,
		Template: "verify_email",
		Params:   map[string]string{"token": token},
	}); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("verification delivery enqueue failed")
	}
	return nil
}

// VerifyEmail consumes a verification link token and flips the flag.
func (s *AccountService) VerifyEmail(ctx context.Context, tokenStr string) error {
	claims, err := security.ParseLinkToken(tokenStr, s.cfg.Auth.LinkTokenSecret)
	if err != nil || claims.Kind != security.LinkKindVerify {
		return ErrLinkTokenInvalid
	}

	won, err := s.accounts.MarkVerified(ctx, claims.AccountID, security.DigestToken(tokenStr), s.now())
	if err != nil {
		return err
	}
	if !won {
		return ErrLinkTokenInvalid
	}

	s.recorder.Record(claims.AccountID, models.ActionEmailVerified, nil, "", "")
	return nil
}

func (s *AccountService) Activity(ctx context.Context, accountID string, limit, offset int) ([]models.ActivityRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.activity.ListByAccount(ctx, accountID, limit, offset)
}
