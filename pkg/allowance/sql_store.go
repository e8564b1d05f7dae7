package allowance

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
	query := `
	CREATE TABLE IF NOT EXISTS allowances (
		zone_id INTEGER NOT NULL,
		holder TEXT NOT NULL,
		total_allowance INTEGER NOT NULL,
		used_allowance INTEGER NOT NULL,
		expiry_block INTEGER NOT NULL,
		PRIMARY KEY (zone_id, holder)
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLStore) Get(ctx context.Context, zoneID uint64, holder contracts.Principal) (Allowance, error) {
	query := `
		SELECT zone_id, holder, total_allowance, used_allowance, expiry_block
		FROM allowances WHERE zone_id = $1 AND holder = $2
	`
	var a Allowance
	var h string
	err := s.db.QueryRowContext(ctx, query, zoneID, string(holder)).Scan(
		&a.ZoneID, &h, &a.Total, &a.Used, &a.ExpiryBlock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Allowance{}, contracts.ErrNotFound
		}
		return Allowance{}, err
	}
	a.Holder = contracts.Principal(h)
	return a, nil
}

func (s *SQLStore) Put(ctx context.Context, a Allowance) error {
	query := `
		INSERT INTO allowances (zone_id, holder, total_allowance, used_allowance, expiry_block)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (zone_id, holder) DO UPDATE SET
			total_allowance = excluded.total_allowance,
			used_allowance = excluded.used_allowance,
			expiry_block = excluded.expiry_block
	`
	_, err := s.db.ExecContext(ctx, query, a.ZoneID, string(a.Holder), a.Total, a.Used, a.ExpiryBlock)
	return err
}
