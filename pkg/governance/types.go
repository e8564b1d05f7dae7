// Package governance implements zone-policy governance: time-boxed community
// votes whose outcome, once executed, overwrites a zone's decibel ceiling.
//
// A proposal moves through three states: open (start <= now < end), closed
// but unexecuted (now >= end), and executed (terminal). Nothing executes
// automatically; a caller must invoke Execute after the window closes.
package governance

import (
	"context"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

const (
	// VotingWindowBlocks is the fixed length of every voting window.
	VotingWindowBlocks uint64 = 144

	// Quorum is the minimum total votes an outcome needs to carry.
	Quorum uint64 = 10
)

// Proposal is a proposed change to a zone's decibel ceiling.
type Proposal struct {
	ID                 uint64              `json:"id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	ZoneID             uint64              `json:"zone_id"`
	ProposedMaxDecibel uint64              `json:"proposed_max_decibel"`
	Proposer           contracts.Principal `json:"proposer"`
	StartBlock         uint64              `json:"start_block"`
	EndBlock           uint64              `json:"end_block"`
	YesVotes           uint64              `json:"yes_votes"`
	NoVotes            uint64              `json:"no_votes"`
	Executed           bool                `json:"executed"`
}

// Open reports whether the voting window covers the given height.
func (p Proposal) Open(height uint64) bool {
	return height >= p.StartBlock && height < p.EndBlock
}

// Vote is one voter's immutable ballot on a proposal.
type Vote struct {
	ProposalID uint64              `json:"proposal_id"`
	Voter      contracts.Principal `json:"voter"`
	Support    bool                `json:"support"`
}

// Store persists proposals, votes, and the proposal id counter.
// Implementations return contracts.ErrNotFound for absent records.
type Store interface {
	GetProposal(ctx context.Context, id uint64) (Proposal, error)
	PutProposal(ctx context.Context, p Proposal) error
	GetVote(ctx context.Context, proposalID uint64, voter contracts.Principal) (Vote, error)
	PutVote(ctx context.Context, v Vote) error

	// NextID atomically advances and returns the proposal id counter (first id is 1).
	NextID(ctx context.Context) (uint64, error)
}

// ZoneRegistry is the slice of the zone registry the engine needs.
type ZoneRegistry interface {
	Get(ctx context.Context, zoneID uint64) (zone.Zone, error)
	SetMaxDecibel(ctx context.Context, zoneID, maxDecibel uint64) error
}
