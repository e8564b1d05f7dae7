package noise

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/audit"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/canonicalize"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// genesisHash anchors the first reading of every zone chain.
const genesisHash = "genesis"

// Monitor is the noise monitor engine.
type Monitor struct {
	mu     sync.Mutex
	store  Store
	zones  ZoneRegistry
	blocks contracts.BlockSource
	rec    audit.Recorder
}

// NewMonitor creates a noise monitor over the given store.
func NewMonitor(store Store, zones ZoneRegistry, blocks contracts.BlockSource) *Monitor {
	return &Monitor{store: store, zones: zones, blocks: blocks}
}

// WithRecorder attaches an audit recorder.
func (m *Monitor) WithRecorder(rec audit.Recorder) *Monitor {
	m.rec = rec
	return m
}

// chainedContent is the hashed portion of a reading.
type chainedContent struct {
	ZoneID   uint64 `json:"zone_id"`
	Height   uint64 `json:"height"`
	Level    uint64 `json:"decibel_level"`
	Reporter string `json:"reporter"`
	PrevHash string `json:"prev_hash"`
}

// Report appends a reading at the current height and updates the zone's
// current-usage field. One reading per (zone, height); a second report in
// the same block is rejected.
func (m *Monitor) Report(ctx context.Context, caller contracts.Principal, zoneID, level uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.zones.Get(ctx, zoneID); err != nil {
		return err
	}

	height := m.blocks.Height()
	if _, err := m.store.Get(ctx, zoneID, height); err == nil {
		return contracts.ErrAlreadyExists
	} else if !errors.Is(err, contracts.ErrNotFound) {
		return err
	}

	prev, err := m.store.Head(ctx, zoneID)
	if err != nil {
		return err
	}
	if prev == "" {
		prev = genesisHash
	}
	hash, err := canonicalize.CanonicalHash(chainedContent{
		ZoneID:   zoneID,
		Height:   height,
		Level:    level,
		Reporter: string(caller),
		PrevHash: prev,
	})
	if err != nil {
		return err
	}

	r := Reading{
		ZoneID:      zoneID,
		Height:      height,
		Level:       level,
		Reporter:    caller,
		PrevHash:    prev,
		ContentHash: "sha256:" + hash,
	}
	if err := m.store.Append(ctx, r); err != nil {
		return err
	}
	if err := m.zones.SetUsage(ctx, zoneID, level); err != nil {
		return err
	}

	if m.rec != nil {
		_ = m.rec.Record(ctx, caller, audit.ActionReportNoise, audit.ReadingResource(zoneID, height), map[string]interface{}{
			"level": level,
		})
	}
	return nil
}

// Get returns the reading recorded for (zone, height).
func (m *Monitor) Get(ctx context.Context, zoneID, height uint64) (Reading, error) {
	return m.store.Get(ctx, zoneID, height)
}

// VerifyChain recomputes every hash in the zone's reading chain and reports
// the first break it finds.
func (m *Monitor) VerifyChain(ctx context.Context, zoneID uint64) error {
	readings, err := m.store.ListZone(ctx, zoneID)
	if err != nil {
		return err
	}
	prev := genesisHash
	for _, r := range readings {
		if r.PrevHash != prev {
			return fmt.Errorf("reading chain broken at zone %d height %d: prev hash mismatch", zoneID, r.Height)
		}
		hash, err := canonicalize.CanonicalHash(chainedContent{
			ZoneID:   r.ZoneID,
			Height:   r.Height,
			Level:    r.Level,
			Reporter: string(r.Reporter),
			PrevHash: r.PrevHash,
		})
		if err != nil {
			return err
		}
		if r.ContentHash != "sha256:"+hash {
			return fmt.Errorf("reading chain broken at zone %d height %d: content hash mismatch", zoneID, r.Height)
		}
		prev = r.ContentHash
	}
	return nil
}
