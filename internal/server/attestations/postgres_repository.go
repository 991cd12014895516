package attestations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aavault/aavault/internal/common"
)

const attestationColumns = `id, owner_id, fact_type, public_inputs, proof, content_hash,
	 hash_alg, verified, status, verifier_version, expires_at, created_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *Attestation) (*Attestation, error) {
	inputs, err := json.Marshal(a.PublicInputs)
	if err != nil {
		return nil, fmt.Errorf("error encoding public inputs: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO attestations
		 (owner_id, fact_type, public_inputs, proof, content_hash, hash_alg,
		  verified, status, verifier_version, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		a.OwnerID, a.FactType, inputs, a.Proof, a.ContentHash, a.HashAlg,
		a.Verified, a.Status, a.VerifierVersion, a.ExpiresAt).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Attestation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+attestationColumns+` FROM attestations WHERE owner_id = $1 AND id = $2`,
		ownerID, id)
	return scanAttestation(row)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Attestation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+attestationColumns+` FROM attestations WHERE id = $1`, id)
	return scanAttestation(row)
}

func (r *PostgresRepository) ExistsByContentHash(ctx context.Context, contentHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM attestations WHERE content_hash = $1)`,
		contentHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Attestation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attestationColumns+` FROM attestations
		 WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*Attestation
	for rows.Next() {
		a, err := scanAttestationRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttestation(row *sql.Row) (*Attestation, error) {
	a, err := scanAttestationRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return a, nil
}

func scanAttestationRow(row rowScanner) (*Attestation, error) {
	a := &Attestation{}
	var inputs []byte
	err := row.Scan(&a.ID, &a.OwnerID, &a.FactType, &inputs, &a.Proof, &a.ContentHash,
		&a.HashAlg, &a.Verified, &a.Status, &a.VerifierVersion, &a.ExpiresAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(inputs) > 0 {
		if err := json.Unmarshal(inputs, &a.PublicInputs); err != nil {
			return nil, fmt.Errorf("error decoding public inputs: %w", err)
		}
	}
	return a, nil
}
