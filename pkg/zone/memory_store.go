package zone

import (
	"context"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// MemoryStore implements Store in memory. Thread-safe via RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	zones  map[uint64]Zone
	owners map[uint64]contracts.Principal
	lastID uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		zones:  make(map[uint64]Zone),
		owners: make(map[uint64]contracts.Principal),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id uint64) (Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zones[id]
	if !ok {
		return Zone{}, contracts.ErrZoneNotFound
	}
	return z, nil
}

func (s *MemoryStore) Put(ctx context.Context, z Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones[z.ID] = z
	return nil
}

func (s *MemoryStore) GetOwner(ctx context.Context, id uint64) (contracts.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[id]
	if !ok {
		return "", contracts.ErrZoneNotFound
	}
	return owner, nil
}

func (s *MemoryStore) PutOwner(ctx context.Context, id uint64, owner contracts.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[id] = owner
	return nil
}

func (s *MemoryStore) NextID(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}

// MemoryPremiums implements PremiumIndex in memory.
type MemoryPremiums struct {
	mu       sync.RWMutex
	premiums map[uint64]uint64
}

func NewMemoryPremiums() *MemoryPremiums {
	return &MemoryPremiums{premiums: make(map[uint64]uint64)}
}

func (p *MemoryPremiums) Set(ctx context.Context, zoneID, premium uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.premiums[zoneID] = premium
	return nil
}

func (p *MemoryPremiums) Get(ctx context.Context, zoneID uint64) (uint64, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	premium, ok := p.premiums[zoneID]
	return premium, ok, nil
}
