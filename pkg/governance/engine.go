package governance

import (
	"context"
	"errors"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/audit"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

// Engine is the governance engine.
type Engine struct {
	mu     sync.Mutex
	store  Store
	zones  ZoneRegistry
	blocks contracts.BlockSource
	rec    audit.Recorder
}

// NewEngine creates a governance engine over the given store.
func NewEngine(store Store, zones ZoneRegistry, blocks contracts.BlockSource) *Engine {
	return &Engine{store: store, zones: zones, blocks: blocks}
}

// WithRecorder attaches an audit recorder.
func (e *Engine) WithRecorder(rec audit.Recorder) *Engine {
	e.rec = rec
	return e
}

// CreateProposal opens a voting window of VotingWindowBlocks on a ceiling
// change for an existing zone.
func (e *Engine) CreateProposal(ctx context.Context, caller contracts.Principal, zoneID uint64, title, description string, proposedMaxDecibel uint64) (uint64, error) {
	if proposedMaxDecibel < zone.MinDecibel || proposedMaxDecibel > zone.MaxDecibel {
		return 0, contracts.ErrInvalidDecibel
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.zones.Get(ctx, zoneID); err != nil {
		return 0, err
	}

	id, err := e.store.NextID(ctx)
	if err != nil {
		return 0, err
	}
	now := e.blocks.Height()
	p := Proposal{
		ID:                 id,
		Title:              title,
		Description:        description,
		ZoneID:             zoneID,
		ProposedMaxDecibel: proposedMaxDecibel,
		Proposer:           caller,
		StartBlock:         now,
		EndBlock:           now + VotingWindowBlocks,
	}
	if err := e.store.PutProposal(ctx, p); err != nil {
		return 0, err
	}

	if e.rec != nil {
		_ = e.rec.Record(ctx, caller, audit.ActionCreateProposal, audit.ProposalResource(id), map[string]interface{}{
			"zone_id":      zoneID,
			"proposed_max": proposedMaxDecibel,
			"end_block":    p.EndBlock,
		})
	}
	return id, nil
}

// CastVote records the caller's ballot. Ballots are immutable, one per
// (proposal, voter), unweighted, and legal only while the window is open.
func (e *Engine) CastVote(ctx context.Context, caller contracts.Principal, proposalID uint64, support bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	now := e.blocks.Height()
	if now >= p.EndBlock {
		// The guard is "voting must still be open": late ballots are
		// rejected with the window code, not a separate closed code.
		return contracts.ErrVotingPeriodActive
	}

	if _, err := e.store.GetVote(ctx, proposalID, caller); err == nil {
		return contracts.ErrAlreadyVoted
	} else if !errors.Is(err, contracts.ErrNotFound) {
		return err
	}

	if err := e.store.PutVote(ctx, Vote{ProposalID: proposalID, Voter: caller, Support: support}); err != nil {
		return err
	}
	if support {
		p.YesVotes++
	} else {
		p.NoVotes++
	}
	if err := e.store.PutProposal(ctx, p); err != nil {
		return err
	}

	if e.rec != nil {
		_ = e.rec.Record(ctx, caller, audit.ActionVote, audit.ProposalResource(proposalID), map[string]interface{}{
			"support": support,
		})
	}
	return nil
}

// Execute applies a closed proposal's outcome to its zone. It requires the
// window to have elapsed, at least Quorum total votes, and a strict yes
// majority (a tie fails). Each proposal executes at most once.
func (e *Engine) Execute(ctx context.Context, caller contracts.Principal, proposalID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.store.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	now := e.blocks.Height()
	if now < p.EndBlock {
		return contracts.ErrVotingPeriodActive
	}
	if p.Executed {
		return contracts.ErrAlreadyExists
	}
	if p.YesVotes+p.NoVotes < Quorum || p.YesVotes <= p.NoVotes {
		return contracts.ErrInvalidVote
	}

	if err := e.zones.SetMaxDecibel(ctx, p.ZoneID, p.ProposedMaxDecibel); err != nil {
		return err
	}
	p.Executed = true
	if err := e.store.PutProposal(ctx, p); err != nil {
		return err
	}

	if e.rec != nil {
		_ = e.rec.Record(ctx, caller, audit.ActionExecute, audit.ProposalResource(proposalID), map[string]interface{}{
			"zone_id": p.ZoneID,
			"new_max": p.ProposedMaxDecibel,
			"yes":     p.YesVotes,
			"no":      p.NoVotes,
		})
	}
	return nil
}

// GetProposal returns the proposal record.
func (e *Engine) GetProposal(ctx context.Context, proposalID uint64) (Proposal, error) {
	return e.store.GetProposal(ctx, proposalID)
}

// GetVote returns a voter's ballot on a proposal.
func (e *Engine) GetVote(ctx context.Context, proposalID uint64, voter contracts.Principal) (Vote, error) {
	return e.store.GetVote(ctx, proposalID, voter)
}
