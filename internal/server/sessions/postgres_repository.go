package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aavault/aavault/internal/common"
)

const sessionColumns = `id, consent_id, owner_id, external_id, status, blob_key,
	 content_hash, hash_alg, key_material, fetched_at, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, session *Session) (*Session, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO data_sessions (consent_id, owner_id, external_id, status, key_material)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		session.ConsentID, session.OwnerID, session.ExternalID, session.Status, session.KeyMaterial).
		Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM data_sessions WHERE owner_id = $1 AND id = $2`,
		ownerID, id)
	return scanSession(row)
}

func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM data_sessions WHERE external_id = $1`,
		externalID)
	return scanSession(row)
}

func (r *PostgresRepository) ListByConsent(ctx context.Context, ownerID, consentID string) ([]*Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM data_sessions
		 WHERE owner_id = $1 AND consent_id = $2
		 ORDER BY created_at DESC`,
		ownerID, consentID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return sessions, nil
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, id, blobKey, contentHash, hashAlg string, fetchedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE data_sessions
		 SET status = $2, blob_key = $3, content_hash = $4, hash_alg = $5,
		     fetched_at = $6, updated_at = now()
		 WHERE id = $1 AND status = $7`,
		id, StatusCompleted, blobKey, contentHash, hashAlg, fetchedAt, StatusPending)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE data_sessions SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
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

func scanSession(row *sql.Row) (*Session, error) {
	s, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return s, nil
}

func scanSessionRow(row rowScanner) (*Session, error) {
	s := &Session{}
	var blobKey, contentHash, hashAlg sql.NullString
	var fetchedAt sql.NullTime
	err := row.Scan(&s.ID, &s.ConsentID, &s.OwnerID, &s.ExternalID, &s.Status,
		&blobKey, &contentHash, &hashAlg, &s.KeyMaterial, &fetchedAt,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.BlobKey = blobKey.String
	s.ContentHash = contentHash.String
	s.HashAlg = hashAlg.String
	if fetchedAt.Valid {
		t := fetchedAt.Time
		s.FetchedAt = &t
	}
	return s, nil
}
