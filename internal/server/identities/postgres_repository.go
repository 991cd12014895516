package identities

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aavault/aavault/internal/common"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, identity *Identity) (*Identity, error) {
	query :=
		`INSERT INTO identities (phone, email, kyc_status)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, identity.Phone, identity.Email, identity.KycStatus).
		Scan(&identity.ID, &identity.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return identity, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Identity, error) {
	query :=
		`SELECT id, phone, email, kyc_status, kyc_level, kyc_provider, kyc_field_hashes, created_at
		 FROM identities
		 WHERE id = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Identity, error) {
	query :=
		`SELECT id, phone, email, kyc_status, kyc_level, kyc_provider, kyc_field_hashes, created_at
		 FROM identities
		 WHERE phone = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, phone))
}

func (r *PostgresRepository) UpdateEmail(ctx context.Context, id, email string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE identities SET email = $2 WHERE id = $1`, id, email)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return requireRowAffected(res)
}

func (r *PostgresRepository) UpdateKyc(ctx context.Context, id, status, level, provider string, fieldHashes map[string]string) error {
	hashes, err := json.Marshal(fieldHashes)
	if err != nil {
		return err
	}

	query :=
		`UPDATE identities
		 SET kyc_status = $2, kyc_level = $3, kyc_provider = $4, kyc_field_hashes = $5
		 WHERE id = $1
		 `
	res, err := r.db.ExecContext(ctx, query, id, status, level, provider, hashes)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return requireRowAffected(res)
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*Identity, error) {
	identity := &Identity{}
	var email, level, provider sql.NullString
	var hashes []byte

	err := row.Scan(&identity.ID, &identity.Phone, &email, &identity.KycStatus,
		&level, &provider, &hashes, &identity.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	identity.Email = email.String
	identity.KycLevel = level.String
	identity.KycProvider = provider.String
	if len(hashes) > 0 {
		if err := json.Unmarshal(hashes, &identity.KycFieldHashes); err != nil {
			return nil, err
		}
	}

	return identity, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
