package db

import (
	"context"
	"database/sql"

	"github.com/aavault/aavault/internal/server/attestations"
	"github.com/aavault/aavault/internal/server/audit"
	"github.com/aavault/aavault/internal/server/consents"
	"github.com/aavault/aavault/internal/server/identities"
	"github.com/aavault/aavault/internal/server/otp"
	"github.com/aavault/aavault/internal/server/sessions"
	"github.com/aavault/aavault/internal/server/shares"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Identities() identities.Repository
	OtpChallenges() otp.Repository
	Consents() consents.Repository
	Sessions() sessions.Repository
	Attestations() attestations.Repository
	Shares() shares.Repository
	Audit() audit.Repository
}
