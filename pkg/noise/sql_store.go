package noise

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
	CREATE TABLE IF NOT EXISTS noise_readings (
		zone_id INTEGER NOT NULL,
		height INTEGER NOT NULL,
		decibel_level INTEGER NOT NULL,
		reporter TEXT NOT NULL,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		prev_hash TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		PRIMARY KEY (zone_id, height)
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLStore) Get(ctx context.Context, zoneID, height uint64) (Reading, error) {
	query := `
		SELECT zone_id, height, decibel_level, reporter, verified, prev_hash, content_hash
		FROM noise_readings WHERE zone_id = $1 AND height = $2
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, zoneID, height))
}

func (s *SQLStore) Append(ctx context.Context, r Reading) error {
	query := `
		INSERT INTO noise_readings (zone_id, height, decibel_level, reporter, verified, prev_hash, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ZoneID, r.Height, r.Level, string(r.Reporter), r.Verified, r.PrevHash, r.ContentHash)
	return err
}

func (s *SQLStore) Head(ctx context.Context, zoneID uint64) (string, error) {
	query := `
		SELECT content_hash FROM noise_readings
		WHERE zone_id = $1 ORDER BY height DESC LIMIT 1
	`
	var head string
	err := s.db.QueryRowContext(ctx, query, zoneID).Scan(&head)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return head, err
}

func (s *SQLStore) ListZone(ctx context.Context, zoneID uint64) ([]Reading, error) {
	query := `
		SELECT zone_id, height, decibel_level, reporter, verified, prev_hash, content_hash
		FROM noise_readings WHERE zone_id = $1 ORDER BY height ASC
	`
	rows, err := s.db.QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var readings []Reading
	for rows.Next() {
		var r Reading
		var reporter string
		if err := rows.Scan(&r.ZoneID, &r.Height, &r.Level, &reporter, &r.Verified, &r.PrevHash, &r.ContentHash); err != nil {
			return nil, err
		}
		r.Reporter = contracts.Principal(reporter)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

type row interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scanOne(r row) (Reading, error) {
	var reading Reading
	var reporter string
	err := r.Scan(&reading.ZoneID, &reading.Height, &reading.Level, &reporter,
		&reading.Verified, &reading.PrevHash, &reading.ContentHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reading{}, contracts.ErrNotFound
		}
		return Reading{}, err
	}
	reading.Reporter = contracts.Principal(reporter)
	return reading, nil
}
