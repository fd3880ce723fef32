package service

import (
	"context"
	"time"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
)

// Store contracts consumed by the services. The pgx repositories satisfy
// them; tests substitute in-memory fakes.

type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	AdminExists(ctx context.Context) (bool, error)
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time, now time.Time) (attempts int, locked bool, err error)
	ResetLockout(ctx context.Context, id string) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
	UpdateSecretHash(ctx context.Context, id string, hash []byte) error
	SetVerifyArtifact(ctx context.Context, id string, digest []byte, expiry time.Time) error
	SetResetArtifact(ctx context.Context, id string, digest []byte, expiry time.Time) error
	MarkVerified(ctx context.Context, id string, digest []byte, now time.Time) (bool, error)
	ConsumeResetArtifact(ctx context.Context, id string, digest []byte, now time.Time) (bool, error)
}

type TokenStore interface {
	Create(ctx context.Context, token models.AuthToken) error
	FindByDigest(ctx context.Context, digest []byte) (models.AuthToken, error)
	Revoke(ctx context.Context, digest []byte) error
	RevokeAllForAccount(ctx context.Context, accountID string) error
}

type OTPStore interface {
	Create(ctx context.Context, code models.OTPCode) error
	Consume(ctx context.Context, accountID string, purpose models.OTPPurpose, code string, now time.Time) (bool, error)
	HasExpiredMatch(ctx context.Context, accountID string, purpose models.OTPPurpose, code string, now time.Time) (bool, error)
}

type ActivityStore interface {
	Insert(ctx context.Context, record models.ActivityRecord) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.ActivityRecord, error)
}
