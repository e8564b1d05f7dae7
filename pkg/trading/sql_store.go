package trading

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
	CREATE TABLE IF NOT EXISTS trade_offers (
		token_id INTEGER PRIMARY KEY,
		seller TEXT NOT NULL,
		price INTEGER NOT NULL,
		zone_id INTEGER NOT NULL,
		decibel_amount INTEGER NOT NULL,
		active BOOLEAN NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLStore) Get(ctx context.Context, tokenID uint64) (Offer, error) {
	query := `
		SELECT token_id, seller, price, zone_id, decibel_amount, active
		FROM trade_offers WHERE token_id = $1
	`
	var o Offer
	var seller string
	err := s.db.QueryRowContext(ctx, query, tokenID).Scan(
		&o.TokenID, &seller, &o.Price, &o.ZoneID, &o.DecibelAmount, &o.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Offer{}, contracts.ErrNotFound
		}
		return Offer{}, err
	}
	o.Seller = contracts.Principal(seller)
	return o, nil
}

func (s *SQLStore) Put(ctx context.Context, o Offer) error {
	query := `
		INSERT INTO trade_offers (token_id, seller, price, zone_id, decibel_amount, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token_id) DO UPDATE SET active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		o.TokenID, string(o.Seller), o.Price, o.ZoneID, o.DecibelAmount, o.Active)
	return err
}
