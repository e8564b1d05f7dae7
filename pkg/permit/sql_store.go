package permit

import (
	"context"
	"database/sql"
	"errors"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// SQLStore implements Store using database/sql. It supports both Postgres
// and SQLite via $N placeholders.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS permits (
			id INTEGER PRIMARY KEY,
			zone_id INTEGER NOT NULL,
			applicant TEXT NOT NULL,
			requested_decibels INTEGER NOT NULL,
			duration_blocks INTEGER NOT NULL,
			approved BOOLEAN NOT NULL DEFAULT FALSE,
			start_block INTEGER NOT NULL DEFAULT 0,
			end_block INTEGER NOT NULL DEFAULT 0,
			fee_paid INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
		`INSERT INTO counters (name, value) VALUES ('permit_id', 0) ON CONFLICT (name) DO NOTHING;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id uint64) (Permit, error) {
	query := `
		SELECT id, zone_id, applicant, requested_decibels, duration_blocks, approved, start_block, end_block, fee_paid
		FROM permits WHERE id = $1
	`
	var p Permit
	var applicant string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.ZoneID, &applicant, &p.RequestedDecibels, &p.DurationBlocks,
		&p.Approved, &p.StartBlock, &p.EndBlock, &p.FeePaid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Permit{}, contracts.ErrNotFound
		}
		return Permit{}, err
	}
	p.Applicant = contracts.Principal(applicant)
	return p, nil
}

func (s *SQLStore) Put(ctx context.Context, p Permit) error {
	query := `
		INSERT INTO permits (id, zone_id, applicant, requested_decibels, duration_blocks, approved, start_block, end_block, fee_paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			approved = excluded.approved,
			start_block = excluded.start_block,
			end_block = excluded.end_block
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.ZoneID, string(p.Applicant), p.RequestedDecibels, p.DurationBlocks,
		p.Approved, p.StartBlock, p.EndBlock, p.FeePaid)
	return err
}

func (s *SQLStore) NextID(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = 'permit_id' RETURNING value`).Scan(&id)
	return id, err
}
