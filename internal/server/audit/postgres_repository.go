package audit

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO audit_log (actor_id, action, resource, resource_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		entry.ActorID, entry.Action, entry.Resource, entry.ResourceID).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor_id, action, resource, resource_id, created_at
		 FROM audit_log
		 WHERE actor_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Resource, &e.ResourceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
