package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aavault/aavault/internal/common"
)

const shareColumns = `id, owner_id, attestation_id, recipient_id, purpose, token,
	 expires_at, max_access, access_count, revoked_at, created_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, share *Share) (*Share, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO share_grants
		 (owner_id, attestation_id, recipient_id, purpose, token, expires_at, max_access)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, access_count, created_at`,
		share.OwnerID, share.AttestationID, share.RecipientID, share.Purpose,
		share.Token, share.ExpiresAt, share.MaxAccess).
		Scan(&share.ID, &share.AccessCount, &share.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return share, nil
}

func (r *PostgresRepository) GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Share, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM share_grants WHERE owner_id = $1 AND id = $2`,
		ownerID, id)
	return scanShare(row)
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*Share, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM share_grants WHERE token = $1`, token)
	return scanShare(row)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Share, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+shareColumns+` FROM share_grants
		 WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*Share
	for rows.Next() {
		s, err := scanShareRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ConsumeAccess(ctx context.Context, token string) (int, int, bool, error) {
	var count, max int
	err := r.db.QueryRowContext(ctx,
		`UPDATE share_grants
		 SET access_count = access_count + 1
		 WHERE token = $1 AND access_count < max_access
		 RETURNING access_count, max_access`,
		token).Scan(&count, &max)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("error performing sql request: %w", err)
	}
	return count, max, true, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE share_grants SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`,
		id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShare(row *sql.Row) (*Share, error) {
	s, err := scanShareRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return s, nil
}

func scanShareRow(row rowScanner) (*Share, error) {
	s := &Share{}
	var revokedAt sql.NullTime
	err := row.Scan(&s.ID, &s.OwnerID, &s.AttestationID, &s.RecipientID, &s.Purpose,
		&s.Token, &s.ExpiresAt, &s.MaxAccess, &s.AccessCount, &revokedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	return s, nil
}
