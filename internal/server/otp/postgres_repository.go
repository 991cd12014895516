package otp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aavault/aavault/internal/common"
	"github.com/aavault/aavault/internal/dbx"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateReplacing(ctx context.Context, challenge *Challenge) (*Challenge, error) {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE otp_challenges SET consumed = TRUE WHERE phone = $1 AND consumed = FALSE`,
			challenge.Phone)
		if err != nil {
			return err
		}

		return tx.QueryRowContext(ctx,
			`INSERT INTO otp_challenges (phone, code_hash, salt, expires_at)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at`,
			challenge.Phone, challenge.CodeHash, challenge.Salt, challenge.ExpiresAt).
			Scan(&challenge.ID, &challenge.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return challenge, nil
}

func (r *PostgresRepository) LatestLive(ctx context.Context, phone string, now time.Time) (*Challenge, error) {
	query :=
		`SELECT id, phone, code_hash, salt, expires_at, attempts, consumed, created_at
		 FROM otp_challenges
		 WHERE phone = $1 AND consumed = FALSE AND expires_at > $2
		 ORDER BY created_at DESC
		 LIMIT 1
		 `

	c := &Challenge{}
	err := r.db.QueryRowContext(ctx, query, phone, now).
		Scan(&c.ID, &c.Phone, &c.CodeHash, &c.Salt, &c.ExpiresAt, &c.Attempts, &c.Consumed, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string, maxAttempts int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_challenges SET attempts = attempts + 1 WHERE id = $1 AND attempts < $2`,
		id, maxAttempts)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) Consume(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_challenges SET consumed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
