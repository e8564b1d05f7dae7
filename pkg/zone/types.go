// Package zone implements the zone registry: zone definitions, ownership,
// and the premium side index used for fast fee lookups.
package zone

import (
	"context"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// Decibel bounds every ceiling and permit request must respect.
const (
	MinDecibel uint64 = 30
	MaxDecibel uint64 = 120

	// QuietZoneCeiling is the highest ceiling a quiet zone may be created with.
	QuietZoneCeiling uint64 = 50

	// Premium multipliers, in hundredths: 100 = 1.0x, 200 = 2.0x.
	BasePremium      uint64 = 100
	QuietZonePremium uint64 = 200
)

// Zone is a governed noise-budget domain.
type Zone struct {
	ID                uint64 `json:"id"`
	Name              string `json:"name"`
	MaxDecibel        uint64 `json:"max_decibel"`
	CurrentUsage      uint64 `json:"current_usage"`
	IsQuietZone       bool   `json:"is_quiet_zone"`
	PremiumMultiplier uint64 `json:"premium_multiplier"`
}

// Store persists zones, their owners, and the zone id counter.
// Implementations must return contracts.ErrZoneNotFound for absent zones.
type Store interface {
	Get(ctx context.Context, id uint64) (Zone, error)
	Put(ctx context.Context, z Zone) error
	GetOwner(ctx context.Context, id uint64) (contracts.Principal, error)
	PutOwner(ctx context.Context, id uint64, owner contracts.Principal) error

	// NextID atomically advances and returns the zone id counter (first id is 1).
	NextID(ctx context.Context) (uint64, error)
}

// PremiumIndex is the redundant premium-by-zone side index. It exists for
// fast fee lookups; the zone record remains the source of truth.
type PremiumIndex interface {
	Set(ctx context.Context, zoneID, premium uint64) error
	Get(ctx context.Context, zoneID uint64) (uint64, bool, error)
}
