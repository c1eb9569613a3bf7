package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore persists audit events in the admin_logs table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the admin_logs table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS admin_logs (
			id SERIAL PRIMARY KEY,
			admin_id VARCHAR(255) NOT NULL,
			action VARCHAR(100) NOT NULL,
			target_id VARCHAR(255),
			details TEXT,
			request_id VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure admin_logs schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_logs (admin_id, action, target_id, details, request_id, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
	`, event.AdminID, event.Action, event.TargetID, event.Details, event.RequestID, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAdmin(ctx context.Context, adminID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT admin_id, action, COALESCE(target_id, ''), COALESCE(details, ''),
			COALESCE(request_id, ''), created_at
		FROM admin_logs WHERE admin_id = $1 ORDER BY created_at
	`, adminID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.AdminID, &e.Action, &e.TargetID, &e.Details, &e.RequestID, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
