package noise

import (
	"context"
	"sort"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

type readingKey struct {
	zoneID uint64
	height uint64
}

// MemoryStore implements Store in memory. Thread-safe via RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	readings map[readingKey]Reading
	heads    map[uint64]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		readings: make(map[readingKey]Reading),
		heads:    make(map[uint64]string),
	}
}

func (s *MemoryStore) Get(ctx context.Context, zoneID, height uint64) (Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.readings[readingKey{zoneID, height}]
	if !ok {
		return Reading{}, contracts.ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) Append(ctx context.Context, r Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[readingKey{r.ZoneID, r.Height}] = r
	s.heads[r.ZoneID] = r.ContentHash
	return nil
}

func (s *MemoryStore) Head(ctx context.Context, zoneID uint64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heads[zoneID], nil
}

func (s *MemoryStore) ListZone(ctx context.Context, zoneID uint64) ([]Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Reading
	for k, r := range s.readings {
		if k.zoneID == zoneID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Height < out[j].Height })
	return out, nil
}
