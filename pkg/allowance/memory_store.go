package allowance

import (
	"context"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

type key struct {
	zoneID uint64
	holder contracts.Principal
}

// MemoryStore implements Store in memory. Thread-safe via RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[key]Allowance
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[key]Allowance)}
}

func (s *MemoryStore) Get(ctx context.Context, zoneID uint64, holder contracts.Principal) (Allowance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.records[key{zoneID, holder}]
	if !ok {
		return Allowance{}, contracts.ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) Put(ctx context.Context, a Allowance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key{a.ZoneID, a.Holder}] = a
	return nil
}
