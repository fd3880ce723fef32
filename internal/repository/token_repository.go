package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
)

var ErrTokenNotFound = errors.New("token not found")

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Create(ctx context.Context, token models.AuthToken) error {
	const query = `
		INSERT INTO auth_tokens (
			id, account_id, digest, device_info, origin, expires_at, revoked, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, FALSE, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.AccountID,
		token.Digest,
		token.DeviceInfo,
		token.Origin,
		token.ExpiresAt,
	)
	return err
}

func (r *TokenRepository) FindByDigest(ctx context.Context, digest []byte) (models.AuthToken, error) {
	const query = `
		SELECT id, account_id, digest, device_info, origin, expires_at, revoked, created_at
		FROM auth_tokens
		WHERE digest = $1
	`

	row := r.pool.QueryRow(ctx, query, digest)
	var token models.AuthToken
	if err := row.Scan(
		&token.ID,
		&token.AccountID,
		&token.Digest,
		&token.DeviceInfo,
		&token.Origin,
		&token.ExpiresAt,
		&token.Revoked,
		&token.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AuthToken{}, ErrTokenNotFound
		}
		return models.AuthToken{}, err
	}
	return token, nil
}

// Revoke is idempotent: revoking an already-revoked or unknown digest
// affects no rows and returns no error, so callers cannot probe which
// tokens exist. Revocation is permanent; there is no reverse operation.
func (r *TokenRepository) Revoke(ctx context.Context, digest []byte) error {
	const query = `UPDATE auth_tokens SET revoked = TRUE WHERE digest = $1`
	_, err := r.pool.Exec(ctx, query, digest)
	return err
}

func (r *TokenRepository) RevokeAllForAccount(ctx context.Context, accountID string) error {
	const query = `UPDATE auth_tokens SET revoked = TRUE WHERE account_id = $1 AND NOT revoked`
	_, err := r.pool.Exec(ctx, query, accountID)
	return err
}

func (r *TokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM auth_tokens WHERE expires_at <= $1`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
