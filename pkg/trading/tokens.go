package trading

import (
	"context"
	"fmt"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// TokenFacility is the external ownership-token capability the trading
// engine composes with. The engine is polymorphic over any implementation;
// mint and transfer are assumed to fail only on ownership mismatch.
type TokenFacility interface {
	Mint(ctx context.Context, id uint64, owner contracts.Principal) error
	Transfer(ctx context.Context, id uint64, from, to contracts.Principal) error
	OwnerOf(ctx context.Context, id uint64) (contracts.Principal, error)
	LastID(ctx context.Context) (uint64, error)
	TokenURI(ctx context.Context, id uint64) (string, error)
}

// MemoryTokens is an in-process TokenFacility.
type MemoryTokens struct {
	mu      sync.RWMutex
	owners  map[uint64]contracts.Principal
	lastID  uint64
	baseURI string
}

// NewMemoryTokens creates a token facility. baseURI prefixes every token
// URI; the URI is otherwise opaque.
func NewMemoryTokens(baseURI string) *MemoryTokens {
	if baseURI == "" {
		baseURI = "quietgrid://allowance-token/"
	}
	return &MemoryTokens{owners: make(map[uint64]contracts.Principal), baseURI: baseURI}
}

func (t *MemoryTokens) Mint(ctx context.Context, id uint64, owner contracts.Principal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.owners[id]; ok {
		return contracts.ErrAlreadyExists
	}
	t.owners[id] = owner
	if id > t.lastID {
		t.lastID = id
	}
	return nil
}

func (t *MemoryTokens) Transfer(ctx context.Context, id uint64, from, to contracts.Principal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	owner, ok := t.owners[id]
	if !ok {
		return contracts.ErrNotFound
	}
	if owner != from {
		return contracts.ErrUnauthorized
	}
	t.owners[id] = to
	return nil
}

func (t *MemoryTokens) OwnerOf(ctx context.Context, id uint64) (contracts.Principal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	owner, ok := t.owners[id]
	if !ok {
		return "", contracts.ErrNotFound
	}
	return owner, nil
}

func (t *MemoryTokens) LastID(ctx context.Context) (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastID, nil
}

func (t *MemoryTokens) TokenURI(ctx context.Context, id uint64) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.owners[id]; !ok {
		return "", contracts.ErrNotFound
	}
	return fmt.Sprintf("%s%d", t.baseURI, id), nil
}
