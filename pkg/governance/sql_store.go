package governance

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
		`CREATE TABLE IF NOT EXISTS proposals (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			zone_id INTEGER NOT NULL,
			proposed_max_decibel INTEGER NOT NULL,
			proposer TEXT NOT NULL,
			start_block INTEGER NOT NULL,
			end_block INTEGER NOT NULL,
			yes_votes INTEGER NOT NULL DEFAULT 0,
			no_votes INTEGER NOT NULL DEFAULT 0,
			executed BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE TABLE IF NOT EXISTS votes (
			proposal_id INTEGER NOT NULL,
			voter TEXT NOT NULL,
			support BOOLEAN NOT NULL,
			PRIMARY KEY (proposal_id, voter)
		);`,
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
		`INSERT INTO counters (name, value) VALUES ('proposal_id', 0) ON CONFLICT (name) DO NOTHING;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) GetProposal(ctx context.Context, id uint64) (Proposal, error) {
	query := `
		SELECT id, title, description, zone_id, proposed_max_decibel, proposer,
		       start_block, end_block, yes_votes, no_votes, executed
		FROM proposals WHERE id = $1
	`
	var p Proposal
	var proposer string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.ZoneID, &p.ProposedMaxDecibel, &proposer,
		&p.StartBlock, &p.EndBlock, &p.YesVotes, &p.NoVotes, &p.Executed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Proposal{}, contracts.ErrNotFound
		}
		return Proposal{}, err
	}
	p.Proposer = contracts.Principal(proposer)
	return p, nil
}

func (s *SQLStore) PutProposal(ctx context.Context, p Proposal) error {
	query := `
		INSERT INTO proposals (id, title, description, zone_id, proposed_max_decibel, proposer,
		                       start_block, end_block, yes_votes, no_votes, executed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			yes_votes = excluded.yes_votes,
			no_votes = excluded.no_votes,
			executed = excluded.executed
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Title, p.Description, p.ZoneID, p.ProposedMaxDecibel, string(p.Proposer),
		p.StartBlock, p.EndBlock, p.YesVotes, p.NoVotes, p.Executed)
	return err
}

func (s *SQLStore) GetVote(ctx context.Context, proposalID uint64, voter contracts.Principal) (Vote, error) {
	query := `SELECT proposal_id, voter, support FROM votes WHERE proposal_id = $1 AND voter = $2`
	var v Vote
	var name string
	err := s.db.QueryRowContext(ctx, query, proposalID, string(voter)).Scan(&v.ProposalID, &name, &v.Support)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Vote{}, contracts.ErrNotFound
		}
		return Vote{}, err
	}
	v.Voter = contracts.Principal(name)
	return v, nil
}

func (s *SQLStore) PutVote(ctx context.Context, v Vote) error {
	// Ballots are immutable; a second insert for the same (proposal, voter)
	// never happens because the engine checks first.
	query := `INSERT INTO votes (proposal_id, voter, support) VALUES ($1, $2, $3)`
	_, err := s.db.ExecContext(ctx, query, v.ProposalID, string(v.Voter), v.Support)
	return err
}

func (s *SQLStore) NextID(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = 'proposal_id' RETURNING value`).Scan(&id)
	return id, err
}
