package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/notify"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/security"
)

type accountFixture struct {
	accounts *fakeAccountStore
	tokens   *fakeTokenStore
	activity *fakeActivityStore
	recorder *ActivityRecorder
	svc      *AccountService
	auth     *AuthService
	clock    time.Time
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	f := &accountFixture{
		accounts: newFakeAccountStore(),
		tokens:   newFakeTokenStore(),
		activity: newFakeActivityStore(),
		clock:    time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	f.recorder = NewActivityRecorder(f.activity, zerolog.Nop(), 64)
	t.Cleanup(f.recorder.Close)

	cfg := testConfig()
	f.svc = NewAccountService(f.accounts, f.tokens, f.activity, notify.NewLogNotifier(zerolog.Nop()), f.recorder, cfg, zerolog.Nop())
	f.svc.now = func() time.Time { return f.clock }
	f.auth = NewAuthService(f.accounts, f.tokens, f.recorder, cfg, zerolog.Nop())
	f.auth.now = func() time.Time { return f.clock }
	return f
}

func TestBootstrapSeedsExactlyOneAdmin(t *testing.T) {
	f := newAccountFixture(t)

	require.NoError(t, f.svc.Bootstrap(context.Background()))
	require.NoError(t, f.svc.Bootstrap(context.Background()))

	admins := 0
	for _, account := range f.accounts.accounts {
		if account.Role == models.RoleAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
}

func TestBootstrapSkipsWhenAdminExists(t *testing.T) {
	f := newAccountFixture(t)

	existing := models.Account{
		ID:     "acc-admin",
		Email:  "boss@example.com",
		Role:   models.RoleAdmin,
		Active: false, // even a deactivated admin suppresses seeding
	}
	require.NoError(t, f.accounts.Create(context.Background(), existing))

	require.NoError(t, f.svc.Bootstrap(context.Background()))
	assert.Len(t, f.accounts.accounts, 1)
}

func TestCreateAccountDuplicateEmailConflicts(t *testing.T) {
	f := newAccountFixture(t)

	input := CreateAccountInput{
		Email:    "dup@example.com",
		Password: "secret-password",
		Name:     "First",
		Role:     models.RoleCalibrator,
	}
	_, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)

	input.Name = "Second"
	_, err = f.svc.Create(context.Background(), input)
	assert.ErrorIs(t, err, ErrAccountConflict)
}

func TestCreateAccountRejectsUnknownRole(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Create(context.Background(), CreateAccountInput{
		Email:    "x@example.com",
		Password: "secret-password",
		Name:     "X",
		Role:     "superuser",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestCreateAccountScrubsSecret(t *testing.T) {
	f := newAccountFixture(t)

	account, err := f.svc.Create(context.Background(), CreateAccountInput{
		Email:    "x@example.com",
		Password: "secret-password",
		Name:     "X",
		Role:     models.RoleViewer,
	})
	require.NoError(t, err)
	assert.Nil(t, account.SecretHash)
}

func TestAdminUnlockClearsLockImmediately(t *testing.T) {
	f := newAccountFixture(t)

	hash, err := security.HashPasswordWithParams("correct horse", testArgon2)
	require.NoError(t, err)
	account := models.Account{
		ID:         "acc-locked",
		Email:      "locked@example.com",
		SecretHash: hash,
		Role:       models.RoleCalibrator,
		Active:     true,
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))

	for i := 0; i < 5; i++ {
		_, _ = f.auth.Login(context.Background(), LoginInput{Email: "locked@example.com", Password: "wrong"})
	}
	stored, _ := f.accounts.GetByID(context.Background(), account.ID)
	require.NotNil(t, stored.LockedUntil)

	require.NoError(t, f.svc.Unlock(context.Background(), account.ID, "acc-admin"))

	_, err = f.auth.Login(context.Background(), LoginInput{Email: "locked@example.com", Password: "correct horse"})
	assert.NoError(t, err, "unlock takes effect without waiting out the window")
}

func TestDeactivateRevokesOutstandingTokens(t *testing.T) {
	f := newAccountFixture(t)

	hash, err := security.HashPasswordWithParams("correct horse", testArgon2)
	require.NoError(t, err)
	account := models.Account{
		ID:         "acc-active",
		Email:      "active@example.com",
		SecretHash: hash,
		Role:       models.RoleCalibrator,
		Active:     true,
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))

	result, err := f.auth.Login(context.Background(), LoginInput{Email: "active@example.com", Password: "correct horse"})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetActive(context.Background(), account.ID, false))

	_, err = f.auth.Authenticate(context.Background(), result.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAccountFixture(t)

	hash, err := security.HashPasswordWithParams("old password", testArgon2)
	require.NoError(t, err)
	account := models.Account{
		ID:         "acc-reset",
		Email:      "reset@example.com",
		SecretHash: hash,
		Role:       models.RoleCalibrator,
		Active:     true,
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "reset@example.com"))

	stored, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetTokenDigest)

	// Rebuild the link token the notifier would have delivered.
	token, digest, err := security.GenerateLinkToken(testConfig().Auth.LinkTokenSecret, account.ID, security.LinkKindReset, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.accounts.SetResetArtifact(context.Background(), account.ID, digest, f.clock.Add(time.Hour)))

	require.NoError(t, f.svc.ResetPassword(context.Background(), token, "new password!"))

	// Old secret dead, new secret live.
	_, err = f.auth.Login(context.Background(), LoginInput{Email: "reset@example.com", Password: "old password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(context.Background(), LoginInput{Email: "reset@example.com", Password: "new password!"})
	assert.NoError(t, err)

	// The link token is single use.
	err = f.svc.ResetPassword(context.Background(), token, "another password")
	assert.ErrorIs(t, err, ErrLinkTokenInvalid)
}

func TestResetPasswordRejectsVerifyKindToken(t *testing.T) {
	f := newAccountFixture(t)

	token, _, err := security.GenerateLinkToken(testConfig().Auth.LinkTokenSecret, "acc-x", security.LinkKindVerify, time.Hour)
	require.NoError(t, err)

	err = f.svc.ResetPassword(context.Background(), token, "new password!")
	assert.ErrorIs(t, err, ErrLinkTokenInvalid)
}

func TestRequestPasswordResetUnknownEmailSilent(t *testing.T) {
	f := newAccountFixture(t)

	assert.NoError(t, f.svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
}

func TestVerifyEmailFlow(t *testing.T) {
	f := newAccountFixture(t)

	account := models.Account{
		ID:     "acc-verify",
		Email:  "verify@example.com",
		Role:   models.RoleViewer,
		Active: true,
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))

	require.NoError(t, f.svc.RequestEmailVerification(context.Background(), account.ID))

	token, digest, err := security.GenerateLinkToken(testConfig().Auth.LinkTokenSecret, account.ID, security.LinkKindVerify, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.accounts.SetVerifyArtifact(context.Background(), account.ID, digest, f.clock.Add(time.Hour)))

	require.NoError(t, f.svc.VerifyEmail(context.Background(), token))

	stored, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)

	// Second consumption fails.
	assert.ErrorIs(t, f.svc.VerifyEmail(context.Background(), token), ErrLinkTokenInvalid)
}

func TestChangePasswordRequiresCurrentSecret(t *testing.T) {
	f := newAccountFixture(t)

	hash, err := security.HashPasswordWithParams("current pw", testArgon2)
	require.NoError(t, err)
	account := models.Account{
		ID:         "acc-change",
		Email:      "change@example.com",
		SecretHash: hash,
		Role:       models.RoleCalibrator,
		Active:     true,
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))

	err = f.svc.ChangePassword(context.Background(), account.ID, "not current", "new password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.svc.ChangePassword(context.Background(), account.ID, "current pw", "new password"))

	_, err = f.auth.Login(context.Background(), LoginInput{Email: "change@example.com", Password: "new password"})
	assert.NoError(t, err)
}
