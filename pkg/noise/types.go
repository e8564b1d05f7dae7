// Package noise implements the noise monitor: an append-only, hash-chained
// log of raw decibel readings per zone. It is independent of the accounting
// engines and feeds only the zone registry's current-usage field.
package noise

import (
	"context"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

// Reading is one reported decibel level, keyed by (zone, height). Readings
// are immutable once written.
//
// Verified is part of the schema but no operation here sets it; an external
// attestation process may flip it out of band.
type Reading struct {
	ZoneID      uint64              `json:"zone_id"`
	Height      uint64              `json:"height"`
	Level       uint64              `json:"decibel_level"`
	Reporter    contracts.Principal `json:"reporter"`
	Verified    bool                `json:"verified"`
	PrevHash    string              `json:"prev_hash"`
	ContentHash string              `json:"content_hash"`
}

// Store persists readings and the head hash of each zone's chain.
// Implementations return contracts.ErrNotFound for absent readings.
type Store interface {
	Get(ctx context.Context, zoneID, height uint64) (Reading, error)
	Append(ctx context.Context, r Reading) error

	// Head returns the content hash of the zone's latest reading, or
	// ("", nil) for a zone with no readings yet.
	Head(ctx context.Context, zoneID uint64) (string, error)

	// ListZone returns the zone's readings in ascending height order.
	ListZone(ctx context.Context, zoneID uint64) ([]Reading, error)
}

// ZoneRegistry is the slice of the zone registry the monitor needs.
type ZoneRegistry interface {
	Get(ctx context.Context, zoneID uint64) (zone.Zone, error)
	SetUsage(ctx context.Context, zoneID, level uint64) error
}
