package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
)

type OTPRepository struct {
	pool *pgxpool.Pool
}

func NewOTPRepository(pool *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{pool: pool}
}

func (r *OTPRepository) Create(ctx context.Context, code models.OTPCode) error {
	const query = `
		INSERT INTO otp_codes (
			id, account_id, code, purpose, expires_at, used, created_at
		) VALUES (
			$1, $2, $3, $4, $5, FALSE, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		code.ID,
		code.AccountID,
		code.Code,
		code.Purpose,
		code.ExpiresAt,
	)
	return err
}

// Consume marks the matching unused, unexpired code as used and reports
// whether this caller won it. The single-statement compare-and-set is
// what keeps concurrent submissions of the same code from both
// succeeding.
func (r *OTPRepository) Consume(ctx context.Context, accountID string, purpose models.OTPPurpose, code string, now time.Time) (bool, error) {
	const query = `
		UPDATE otp_codes
		SET used = TRUE
		WHERE id = (
			SELECT id FROM otp_codes
			WHERE account_id = $1 AND purpose = $2 AND code = $3
			  AND NOT used AND expires_at > $4
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
	`

	cmd, err := r.pool.Exec(ctx, query, accountID, purpose, code, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// HasExpiredMatch reports whether the submitted value matches an unused
// but expired code, which lets validation distinguish "expired" from
// "never existed".
func (r *OTPRepository) HasExpiredMatch(ctx context.Context, accountID string, purpose models.OTPPurpose, code string, now time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM otp_codes
			WHERE account_id = $1 AND purpose = $2 AND code = $3
			  AND NOT used AND expires_at <= $4
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, accountID, purpose, code, now).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *OTPRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM otp_codes WHERE expires_at <= $1 OR used`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
