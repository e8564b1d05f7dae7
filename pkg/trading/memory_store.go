package trading

import (
	"context"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// MemoryStore implements Store in memory. Thread-safe via RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	offers map[uint64]Offer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{offers: make(map[uint64]Offer)}
}

func (s *MemoryStore) Get(ctx context.Context, tokenID uint64) (Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[tokenID]
	if !ok {
		return Offer{}, contracts.ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) Put(ctx context.Context, o Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[o.TokenID] = o
	return nil
}
