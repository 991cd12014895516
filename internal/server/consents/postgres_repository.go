package consents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"encoding/json"

	"github.com/aavault/aavault/internal/common"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const grantColumns = `id, owner_id, vua, fi_types, purpose_code, purpose_text,
	data_range_from, data_range_to, duration_days, expires_at, fetch_type,
	consent_mode, external_id, handle, approval_url, status, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, grant *Grant) (*Grant, error) {
	query :=
		`INSERT INTO consents (owner_id, vua, fi_types, purpose_code, purpose_text,
			data_range_from, data_range_to, duration_days, expires_at, fetch_type, consent_mode, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at
		 `

	fiTypes, err := json.Marshal(grant.FiTypes)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, query,
		grant.OwnerID, grant.VUA, fiTypes, grant.PurposeCode, grant.PurposeText,
		grant.DataRangeFrom, grant.DataRangeTo, grant.DurationDays, grant.ExpiresAt,
		grant.FetchType, grant.ConsentMode, grant.Status).
		Scan(&grant.ID, &grant.CreatedAt, &grant.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return grant, nil
}

func (r *PostgresRepository) GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM consents WHERE id = $1 AND owner_id = $2`
	return scanGrant(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM consents WHERE id = $1`
	return scanGrant(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM consents WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var grants []*Grant
	for rows.Next() {
		g, err := scanGrantRow(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (r *PostgresRepository) FindByExternalRef(ctx context.Context, externalID, handle string) (*Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM consents
		 WHERE (external_id = $1 AND $1 <> '') OR (handle = $2 AND $2 <> '')
		 LIMIT 1`
	return scanGrant(r.db.QueryRowContext(ctx, query, externalID, handle))
}

func (r *PostgresRepository) UpdateRegistration(ctx context.Context, id, externalID, handle, approvalURL string) error {
	query :=
		`UPDATE consents
		 SET external_id = $2, handle = $3, approval_url = $4, updated_at = now()
		 WHERE id = $1`
	return exec(r.db, ctx, query, id, externalID, handle, approvalURL)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status, handle string) error {
	query :=
		`UPDATE consents
		 SET status = $2, handle = COALESCE(NULLIF($3, ''), handle), updated_at = now()
		 WHERE id = $1`
	return exec(r.db, ctx, query, id, status, handle)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return exec(r.db, ctx, `DELETE FROM consents WHERE id = $1`, id)
}

func exec(db *sql.DB, ctx context.Context, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
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

func scanGrant(row *sql.Row) (*Grant, error) {
	g, err := scanGrantRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func scanGrantRow(row rowScanner) (*Grant, error) {
	g := &Grant{}
	var fiTypes []byte
	var externalID, handle, approvalURL sql.NullString

	err := row.Scan(&g.ID, &g.OwnerID, &g.VUA, &fiTypes, &g.PurposeCode, &g.PurposeText,
		&g.DataRangeFrom, &g.DataRangeTo, &g.DurationDays, &g.ExpiresAt, &g.FetchType,
		&g.ConsentMode, &externalID, &handle, &approvalURL, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(fiTypes) > 0 {
		if err := json.Unmarshal(fiTypes, &g.FiTypes); err != nil {
			return nil, err
		}
	}
	g.ExternalID = externalID.String
	g.Handle = handle.String
	g.ApprovalURL = approvalURL.String
	return g, nil
}
