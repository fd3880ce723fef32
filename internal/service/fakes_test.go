package service

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
	"github.com/FyliaCare/calibration-mvp-sub000/internal/repository"
)

// In-memory stores mirroring the transactional semantics of the pgx
// repositories, including atomic failure counting and consume-once.

type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[string]models.Account)}
}

func (f *fakeAccountStore) Create(_ context.Context, account models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Email == account.Email {
			return repository.ErrDuplicateAccount
		}
		if account.EmployeeID != nil && existing.EmployeeID != nil && *existing.EmployeeID == *account.EmployeeID {
			return repository.ErrDuplicateAccount
		}
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountStore) FindByEmail(_ context.Context, email string) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return models.Account{}, repository.ErrAccountNotFound
}

func (f *fakeAccountStore) GetByID(_ context.Context, id string) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return models.Account{}, repository.ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeAccountStore) AdminExists(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccountStore) RecordLoginFailure(_ context.Context, id string, threshold int, lockUntil time.Time, now time.Time) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return 0, false, repository.ErrAccountNotFound
	}

	if account.LockedUntil != nil && !account.LockedUntil.After(now) {
		account.FailedAttempts = 1
		account.LockedUntil = nil
	} else {
		account.FailedAttempts++
		if account.LockedUntil == nil && account.FailedAttempts >= threshold {
			until := lockUntil
			account.LockedUntil = &until
		}
	}

	f.accounts[id] = account
	locked := account.LockedUntil != nil && account.LockedUntil.After(now)
	return account.FailedAttempts, locked, nil
}

func (f *fakeAccountStore) ResetLockout(_ context.Context, id string) error {
	return f.mutate(id, func(a *models.Account) {
		a.FailedAttempts = 0
		a.LockedUntil = nil
	})
}

func (f *fakeAccountStore) SetLastLogin(_ context.Context, id string, at time.Time) error {
	return f.mutate(id, func(a *models.Account) {
		t := at
		a.LastLoginAt = &t
	})
}

func (f *fakeAccountStore) SetActive(_ context.Context, id string, active bool) error {
	return f.mutate(id, func(a *models.Account) {
		a.Active = active
	})
}

func (f *fakeAccountStore) UpdateSecretHash(_ context.Context, id string, hash []byte) error {
	return f.mutate(id, func(a *models.Account) {
		a.SecretHash = hash
		a.ResetTokenDigest = nil
		a.ResetTokenExpiry = nil
	})
}

func (f *fakeAccountStore) SetVerifyArtifact(_ context.Context, id string, digest []byte, expiry time.Time) error {
	return f.mutate(id, func(a *models.Account) {
		a.VerifyTokenDigest = digest
		t := expiry
		a.VerifyTokenExpiry = &t
	})
}

func (f *fakeAccountStore) SetResetArtifact(_ context.Context, id string, digest []byte, expiry time.Time) error {
	return f.mutate(id, func(a *models.Account) {
		a.ResetTokenDigest = digest
		t := expiry
		a.ResetTokenExpiry = &t
	})
}

func (f *fakeAccountStore) MarkVerified(_ context.Context, id string, digest []byte, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return false, nil
	}
	if account.VerifyTokenDigest == nil || !bytes.Equal(account.VerifyTokenDigest, digest) {
		return false, nil
	}
	if account.VerifyTokenExpiry == nil || !account.VerifyTokenExpiry.After(now) {
		return false, nil
	}
	account.Verified = true
	account.VerifyTokenDigest = nil
	account.VerifyTokenExpiry = nil
	f.accounts[id] = account
	return true, nil
}

func (f *fakeAccountStore) ConsumeResetArtifact(_ context.Context, id string, digest []byte, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return false, nil
	}
	if account.ResetTokenDigest == nil || !bytes.Equal(account.ResetTokenDigest, digest) {
		return false, nil
	}
	if account.ResetTokenExpiry == nil || !account.ResetTokenExpiry.After(now) {
		return false, nil
	}
	account.ResetTokenDigest = nil
	account.ResetTokenExpiry = nil
	f.accounts[id] = account
	return true, nil
}

func (f *fakeAccountStore) mutate(id string, fn func(*models.Account)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	fn(&account)
	account.UpdatedAt = time.Now()
	f.accounts[id] = account
	return nil
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]models.AuthToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]models.AuthToken)}
}

func (f *fakeTokenStore) Create(_ context.Context, token models.AuthToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[string(token.Digest)] = token
	return nil
}

func (f *fakeTokenStore) FindByDigest(_ context.Context, digest []byte) (models.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[string(digest)]
	if !ok {
		return models.AuthToken{}, repository.ErrTokenNotFound
	}
	return token, nil
}

func (f *fakeTokenStore) Revoke(_ context.Context, digest []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token, ok := f.tokens[string(digest)]; ok {
		token.Revoked = true
		f.tokens[string(digest)] = token
	}
	return nil
}

func (f *fakeTokenStore) RevokeAllForAccount(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, token := range f.tokens {
		if token.AccountID == accountID {
			token.Revoked = true
			f.tokens[key] = token
		}
	}
	return nil
}

type fakeOTPStore struct {
	mu    sync.Mutex
	codes []models.OTPCode
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{}
}

func (f *fakeOTPStore) Create(_ context.Context, code models.OTPCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	code.CreatedAt = time.Now()
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeOTPStore) Consume(_ context.Context, accountID string, purpose models.OTPPurpose, code string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.codes) - 1; i >= 0; i-- {
		c := f.codes[i]
		if c.AccountID == accountID && c.Purpose == purpose && c.Code == code && !c.Used && c.ExpiresAt.After(now) {
			f.codes[i].Used = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOTPStore) HasExpiredMatch(_ context.Context, accountID string, purpose models.OTPPurpose, code string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.AccountID == accountID && c.Purpose == purpose && c.Code == code && !c.Used && !c.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

type fakeActivityStore struct {
	mu      sync.Mutex
	records []models.ActivityRecord
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{}
}

func (f *fakeActivityStore) Insert(_ context.Context, record models.ActivityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeActivityStore) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]models.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ActivityRecord
	for _, record := range f.records {
		if record.AccountID == accountID {
			out = append(out, record)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeActivityStore) actions(accountID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, record := range f.records {
		if record.AccountID == accountID {
			out = append(out, record.Action)
		}
	}
	return out
}
