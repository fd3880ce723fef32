package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FyliaCare/calibration-mvp-sub000/internal/models"
)

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

func (r *ActivityRepository) Insert(ctx context.Context, record models.ActivityRecord) error {
	const query = `
		INSERT INTO activity_log (
			id, account_id, action, detail, origin, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW()
		)
	`

	var detail []byte
	if len(record.Detail) > 0 {
		b, err := json.Marshal(record.Detail)
		if err != nil {
			return err
		}
		detail = b
	}

	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.AccountID,
		record.Action,
		detail,
		record.Origin,
		record.UserAgent,
	)
	return err
}

func (r *ActivityRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.ActivityRecord, error) {
	const query = `
		SELECT id, account_id, action, detail, origin, user_agent, created_at
		FROM activity_log
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ActivityRecord
	for rows.Next() {
		var record models.ActivityRecord
		var detail []byte
		if err := rows.Scan(
			&record.ID,
			&record.AccountID,
			&record.Action,
			&detail,
			&record.Origin,
			&record.UserAgent,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &record.Detail); err != nil {
				return nil, err
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
