package complaint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/hellokitty09/inharitance/pkg/sentinel"
)

// PostgresStore persists complaints in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the complaints table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS complaints (
			id UUID PRIMARY KEY,
			category VARCHAR(100) NOT NULL,
			party_name VARCHAR(255),
			description TEXT NOT NULL,
			evidence TEXT,
			zkp_proof JSONB,
			region_hash VARCHAR(255),
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure complaints schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	query := `
		INSERT INTO complaints
			(id, category, party_name, description, evidence, zkp_proof, region_hash, status, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9, $10)
	`
	var proof any
	if len(record.ZKPProof) > 0 {
		proof = []byte(record.ZKPProof)
	}
	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.Category, record.PartyName, record.Description,
		record.Evidence, proof, record.RegionHash, record.Status,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save complaint: %w", err)
	}
	return nil
}

const selectColumns = `id, category, COALESCE(party_name, ''), description,
	COALESCE(evidence, ''), COALESCE(zkp_proof::text, ''), COALESCE(region_hash, ''),
	status, created_at, updated_at`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM complaints WHERE id = $1`, id)
	return scanRecord(row)
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	// The filter is a closed set of recognized columns; values are always
	// bound parameters.
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, "category = $"+strconv.Itoa(len(args)))
	}
	if filter.Party != "" {
		args = append(args, filter.Party)
		conds = append(conds, "party_name = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + selectColumns + ` FROM complaints`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status, updatedAt time.Time) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE complaints SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+selectColumns,
		id, status, updatedAt)
	return scanRecord(row)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM complaints WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete complaint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	stats := NewStats()

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM complaints GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	catRows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM complaints GROUP BY category`)
	if err != nil {
		return Stats{}, fmt.Errorf("count by category: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var category string
		var count int
		if err := catRows.Scan(&category, &count); err != nil {
			return Stats{}, err
		}
		stats.ByCategory[category] = count
	}
	return stats, catRows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var record Record
	var proof string
	err := row.Scan(
		&record.ID, &record.Category, &record.PartyName, &record.Description,
		&record.Evidence, &proof, &record.RegionHash,
		&record.Status, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan complaint: %w", err)
	}
	if proof != "" {
		record.ZKPProof = []byte(proof)
	}
	return record, nil
}
