package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/aavault/aavault/internal/server/attestations"
	"github.com/aavault/aavault/internal/server/audit"
	"github.com/aavault/aavault/internal/server/consents"
	"github.com/aavault/aavault/internal/server/identities"
	"github.com/aavault/aavault/internal/server/migrations"
	"github.com/aavault/aavault/internal/server/otp"
	"github.com/aavault/aavault/internal/server/sessions"
	"github.com/aavault/aavault/internal/server/shares"
)

type PostgresRepositoryManager struct {
	db            *sql.DB
	identities    identities.Repository
	otpChallenges otp.Repository
	consents      consents.Repository
	sessions      sessions.Repository
	attestations  attestations.Repository
	shares        shares.Repository
	audit         audit.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Identities() identities.Repository {
	return m.identities
}

func (m *PostgresRepositoryManager) OtpChallenges() otp.Repository {
	return m.otpChallenges
}

func (m *PostgresRepositoryManager) Consents() consents.Repository {
	return m.consents
}

func (m *PostgresRepositoryManager) Sessions() sessions.Repository {
	return m.sessions
}

func (m *PostgresRepositoryManager) Attestations() attestations.Repository {
	return m.attestations
}

func (m *PostgresRepositoryManager) Shares() shares.Repository {
	return m.shares
}

func (m *PostgresRepositoryManager) Audit() audit.Repository {
	return m.audit
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:            db,
		identities:    identities.NewPostgresRepository(db),
		otpChallenges: otp.NewPostgresRepository(db),
		consents:      consents.NewPostgresRepository(db),
		sessions:      sessions.NewPostgresRepository(db),
		attestations:  attestations.NewPostgresRepository(db),
		shares:        shares.NewPostgresRepository(db),
		audit:         audit.NewPostgresRepository(db),
	}

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
