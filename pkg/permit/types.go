// Package permit implements the construction-permit lifecycle: fee quoting,
// application, and owner approval. Permits pay a fee; they never touch the
// allowance ledger.
package permit

import (
	"context"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

// Permit is a time-boxed authorization to exceed normal activity in a zone.
// Start and end stay zero until approval; once current height passes
// EndBlock the permit lapses naturally, with no explicit close transition.
type Permit struct {
	ID                uint64              `json:"id"`
	ZoneID            uint64              `json:"zone_id"`
	Applicant         contracts.Principal `json:"applicant"`
	RequestedDecibels uint64              `json:"requested_decibels"`
	DurationBlocks    uint64              `json:"duration_blocks"`
	Approved          bool                `json:"approved"`
	StartBlock        uint64              `json:"start_block"`
	EndBlock          uint64              `json:"end_block"`
	// FeePaid is the amount quoted at application time. Collection is the
	// host's concern; the ledger records it and never charges it.
	FeePaid uint64 `json:"fee_paid"`
}

// InWindow reports whether the permit is approved and its window covers the
// given height.
func (p Permit) InWindow(height uint64) bool {
	return p.Approved && height >= p.StartBlock && height <= p.EndBlock
}

// Store persists permits and the permit id counter.
// Implementations return contracts.ErrNotFound for absent permits.
type Store interface {
	Get(ctx context.Context, id uint64) (Permit, error)
	Put(ctx context.Context, p Permit) error

	// NextID atomically advances and returns the permit id counter (first id is 1).
	NextID(ctx context.Context) (uint64, error)
}

// ZoneDirectory is the slice of the zone registry the manager needs.
type ZoneDirectory interface {
	Get(ctx context.Context, zoneID uint64) (zone.Zone, error)
	Owner(ctx context.Context, zoneID uint64) (contracts.Principal, error)
}
