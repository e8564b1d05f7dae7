package zone

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
		`CREATE TABLE IF NOT EXISTS zones (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			max_decibel INTEGER NOT NULL,
			current_usage INTEGER NOT NULL DEFAULT 0,
			is_quiet_zone BOOLEAN NOT NULL,
			premium_multiplier INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS zone_owners (
			zone_id INTEGER PRIMARY KEY,
			owner TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
		`INSERT INTO counters (name, value) VALUES ('zone_id', 0) ON CONFLICT (name) DO NOTHING;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id uint64) (Zone, error) {
	query := `SELECT id, name, max_decibel, current_usage, is_quiet_zone, premium_multiplier FROM zones WHERE id = $1`
	var z Zone
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&z.ID, &z.Name, &z.MaxDecibel, &z.CurrentUsage, &z.IsQuietZone, &z.PremiumMultiplier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Zone{}, contracts.ErrZoneNotFound
		}
		return Zone{}, err
	}
	return z, nil
}

func (s *SQLStore) Put(ctx context.Context, z Zone) error {
	query := `
		INSERT INTO zones (id, name, max_decibel, current_usage, is_quiet_zone, premium_multiplier)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			max_decibel = excluded.max_decibel,
			current_usage = excluded.current_usage,
			is_quiet_zone = excluded.is_quiet_zone,
			premium_multiplier = excluded.premium_multiplier
	`
	_, err := s.db.ExecContext(ctx, query, z.ID, z.Name, z.MaxDecibel, z.CurrentUsage, z.IsQuietZone, z.PremiumMultiplier)
	return err
}

func (s *SQLStore) GetOwner(ctx context.Context, id uint64) (contracts.Principal, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT owner FROM zone_owners WHERE zone_id = $1`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", contracts.ErrZoneNotFound
		}
		return "", err
	}
	return contracts.Principal(owner), nil
}

func (s *SQLStore) PutOwner(ctx context.Context, id uint64, owner contracts.Principal) error {
	query := `
		INSERT INTO zone_owners (zone_id, owner) VALUES ($1, $2)
		ON CONFLICT (zone_id) DO UPDATE SET owner = excluded.owner
	`
	_, err := s.db.ExecContext(ctx, query, id, string(owner))
	return err
}

func (s *SQLStore) NextID(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = 'zone_id' RETURNING value`).Scan(&id)
	return id, err
}
