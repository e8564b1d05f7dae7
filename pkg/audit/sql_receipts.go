package audit

import (
	"context"
	"database/sql"
	"encoding/json"
)

// SQLReceipts implements ReceiptStore over database/sql. It works with both
// Postgres and SQLite via $N placeholders.
type SQLReceipts struct {
	db *sql.DB
}

func NewSQLReceipts(db *sql.DB) (*SQLReceipts, error) {
	s := &SQLReceipts{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLReceipts) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_receipts (
		id TEXT PRIMARY KEY,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		height INTEGER NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		content_hash TEXT NOT NULL,
		metadata TEXT
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLReceipts) Append(ctx context.Context, r Receipt) error {
	meta, err := json.Marshal(r.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO audit_receipts (id, actor, action, resource, height, timestamp, content_hash, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Actor, r.Action, r.Resource, r.Height, r.Timestamp, r.ContentHash, string(meta))
	return err
}

func (s *SQLReceipts) List(ctx context.Context, limit int) ([]Receipt, error) {
	query := `
		SELECT id, actor, action, resource, height, timestamp, content_hash, metadata
		FROM audit_receipts
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var receipts []Receipt
	for rows.Next() {
		var r Receipt
		var meta sql.NullString
		if err := rows.Scan(&r.ID, &r.Actor, &r.Action, &r.Resource, &r.Height, &r.Timestamp, &r.ContentHash, &meta); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &r.Metadata); err != nil {
				return nil, err
			}
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}
