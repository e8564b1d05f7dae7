// Package allowance implements the allowance ledger: per-(zone, holder)
// decibel budget grants, consumption, and the atomic transfer primitive the
// trading engine composes with.
package allowance

import (
	"context"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// Allowance is a holder's spendable decibel budget within a zone.
// used <= total holds after every successful transition.
type Allowance struct {
	ZoneID      uint64              `json:"zone_id"`
	Holder      contracts.Principal `json:"holder"`
	Total       uint64              `json:"total_allowance"`
	Used        uint64              `json:"used_allowance"`
	ExpiryBlock uint64              `json:"expiry_block"`
}

// Spendable returns the capacity still available to the holder.
func (a Allowance) Spendable() uint64 {
	return a.Total - a.Used
}

// Store persists allowance records keyed by (zone, holder).
// Implementations return contracts.ErrNotFound for absent records.
type Store interface {
	Get(ctx context.Context, zoneID uint64, holder contracts.Principal) (Allowance, error)
	Put(ctx context.Context, a Allowance) error
}

// ZoneDirectory is the slice of the zone registry the ledger needs.
type ZoneDirectory interface {
	Owner(ctx context.Context, zoneID uint64) (contracts.Principal, error)
}
