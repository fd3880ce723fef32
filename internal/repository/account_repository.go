package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrDuplicateAccount = errors.New("duplicate account")
)

const pgUniqueViolation = "23505"

const accountColumns = `
	id, email, secret_hash, name, role, employee_id, active, verified,
	failed_attempts, locked_until,
	verify_token_digest, verify_token_expiry, reset_token_digest, reset_token_expiry,
	last_login_at, created_by, created_at, updated_at
`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Create(ctx context.Context, account models.Account) error {
	const query = `
		INSERT INTO accounts (
			id, email, secret_hash, name, role, employee_id, active, verified, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.SecretHash,
		account.Name,
		account.Role,
		account.EmployeeID,
		account.Active,
		account.Verified,
		account.CreatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, id))
}

// AdminExists reports whether any account with the admin role is
// present, regardless of its active flag. Bootstrap seeding keys off
// this.
func (r *AccountRepository) AdminExists(ctx context.Context) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE role = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, models.RoleAdmin).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// RecordLoginFailure applies one failed-verification transition of the
// lockout state machine in a single atomic statement: the counter
// increments (or restarts at 1 when a previous lock has already
// elapsed), and crossing the threshold stamps locked_until. Returns the
// post-update state so the caller can log a lockout event exactly once.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time, now time.Time) (attempts int, locked bool, err error) {
	const query = `
		UPDATE accounts
		SET failed_attempts = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= $2 THEN 1
				ELSE failed_attempts + 1
			END,
			locked_until = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= $2 THEN NULL
				WHEN locked_until IS NOT NULL THEN locked_until
				WHEN failed_attempts + 1 >= $3 THEN $4
				ELSE NULL
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING failed_attempts, locked_until
	`

	var until *time.Time
	if err := r.pool.QueryRow(ctx, query, id, now, threshold, lockUntil).Scan(&attempts, &until); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, ErrAccountNotFound
		}
		return 0, false, err
	}
	return attempts, until != nil && until.After(now), nil
}

// ResetLockout clears the failure counter and any lock. Used after a
// successful verification and by administrative unlock.
func (r *AccountRepository) ResetLockout(ctx context.Context, id string) error {
	const query = `
		UPDATE accounts
		SET failed_attempts = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET last_login_at = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *AccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE accounts SET active = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdateSecretHash replaces the credential and clears any outstanding
// reset artifact in the same statement.
func (r *AccountRepository) UpdateSecretHash(ctx context.Context, id string, hash []byte) error {
	const query = `
		UPDATE accounts
		SET secret_hash = $2, reset_token_digest = NULL, reset_token_expiry = NULL, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SetVerifyArtifact(ctx context.Context, id string, digest []byte, expiry time.Time) error {
	const query = `
		UPDATE accounts
		SET verify_token_digest = $2, verify_token_expiry = $3, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, digest, expiry)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SetResetArtifact(ctx context.Context, id string, digest []byte, expiry time.Time) error {
	const query = `
		UPDATE accounts
		SET reset_token_digest = $2, reset_token_expiry = $3, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, digest, expiry)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// MarkVerified flips the verified flag and consumes the verification
// artifact in one compare-and-set: a stale or already-consumed digest
// matches no row.
func (r *AccountRepository) MarkVerified(ctx context.Context, id string, digest []byte, now time.Time) (bool, error) {
	const query = `
		UPDATE accounts
		SET verified = TRUE, verify_token_digest = NULL, verify_token_expiry = NULL, updated_at = NOW()
		WHERE id = $1 AND verify_token_digest = $2 AND verify_token_expiry > $3
	`
	cmd, err := r.pool.Exec(ctx, query, id, digest, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// ConsumeResetArtifact clears the reset artifact iff the digest matches
// and is unexpired; reports whether the caller won the consume.
func (r *AccountRepository) ConsumeResetArtifact(ctx context.Context, id string, digest []byte, now time.Time) (bool, error) {
	const query = `
		UPDATE accounts
		SET reset_token_digest = NULL, reset_token_expiry = NULL, updated_at = NOW()
		WHERE id = $1 AND reset_token_digest = $2 AND reset_token_expiry > $3
	`
	cmd, err := r.pool.Exec(ctx, query, id, digest, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (models.Account, error) {
	var account models.Account
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.SecretHash,
		&account.Name,
		&account.Role,
		&account.EmployeeID,
		&account.Active,
		&account.Verified,
		&account.FailedAttempts,
		&account.LockedUntil,
		&account.VerifyTokenDigest,
		&account.VerifyTokenExpiry,
		&account.ResetTokenDigest,
		&account.ResetTokenExpiry,
		&account.LastLoginAt,
		&account.CreatedBy,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}
