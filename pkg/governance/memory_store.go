package governance

import (
	"context"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

type voteKey struct {
	proposalID uint64
	voter      contracts.Principal
}

// MemoryStore implements Store in memory. Thread-safe via RWMutex.
type MemoryStore struct {
	mu        sync.RWMutex
	proposals map[uint64]Proposal
	votes     map[voteKey]Vote
	lastID    uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		proposals: make(map[uint64]Proposal),
		votes:     make(map[voteKey]Vote),
	}
}

func (s *MemoryStore) GetProposal(ctx context.Context, id uint64) (Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[id]
	if !ok {
		return Proposal{}, contracts.ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) PutProposal(ctx context.Context, p Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = p
	return nil
}

func (s *MemoryStore) GetVote(ctx context.Context, proposalID uint64, voter contracts.Principal) (Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.votes[voteKey{proposalID, voter}]
	if !ok {
		return Vote{}, contracts.ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) PutVote(ctx context.Context, v Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[voteKey{v.ProposalID, v.Voter}] = v
	return nil
}

func (s *MemoryStore) NextID(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}
