package permit

import (
	"context"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// MemoryStore implements Store in memory. Thread-safe via RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	permits map[uint64]Permit
	lastID  uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{permits: make(map[uint64]Permit)}
}

func (s *MemoryStore) Get(ctx context.Context, id uint64) (Permit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permits[id]
	if !ok {
		return Permit{}, contracts.ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Put(ctx context.Context, p Permit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permits[p.ID] = p
	return nil
}

func (s *MemoryStore) NextID(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}
