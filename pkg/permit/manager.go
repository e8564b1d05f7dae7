package permit

import (
	"context"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/audit"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

// Manager is the permit manager engine.
type Manager struct {
	mu     sync.Mutex
	store  Store
	zones  ZoneDirectory
	blocks contracts.BlockSource
	rec    audit.Recorder
}

// NewManager creates a permit manager over the given store.
func NewManager(store Store, zones ZoneDirectory, blocks contracts.BlockSource) *Manager {
	return &Manager{store: store, zones: zones, blocks: blocks}
}

// WithRecorder attaches an audit recorder.
func (m *Manager) WithRecorder(rec audit.Recorder) *Manager {
	m.rec = rec
	return m
}

// CalculateFee quotes the permit fee for a request:
//
//	fee = requested_decibels * duration_blocks * premium / 100
//
// where premium is the zone's multiplier for quiet zones and 100 otherwise.
// Integer division truncates toward zero.
func (m *Manager) CalculateFee(ctx context.Context, zoneID, requestedDecibels, durationBlocks uint64) (uint64, error) {
	z, err := m.zones.Get(ctx, zoneID)
	if err != nil {
		return 0, err
	}
	premium := zone.BasePremium
	if z.IsQuietZone {
		premium = z.PremiumMultiplier
	}
	return requestedDecibels * durationBlocks * premium / 100, nil
}

// Apply files a permit application. The fee is computed and recorded at
// application time and fixed thereafter; the permit starts unapproved.
func (m *Manager) Apply(ctx context.Context, caller contracts.Principal, zoneID, requestedDecibels, durationBlocks uint64) (uint64, error) {
	if requestedDecibels < zone.MinDecibel || requestedDecibels > zone.MaxDecibel {
		return 0, contracts.ErrInvalidDecibel
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fee, err := m.CalculateFee(ctx, zoneID, requestedDecibels, durationBlocks)
	if err != nil {
		return 0, err
	}

	id, err := m.store.NextID(ctx)
	if err != nil {
		return 0, err
	}
	p := Permit{
		ID:                id,
		ZoneID:            zoneID,
		Applicant:         caller,
		RequestedDecibels: requestedDecibels,
		DurationBlocks:    durationBlocks,
		FeePaid:           fee,
	}
	if err := m.store.Put(ctx, p); err != nil {
		return 0, err
	}

	if m.rec != nil {
		_ = m.rec.Record(ctx, caller, audit.ActionApplyPermit, audit.PermitResource(id), map[string]interface{}{
			"zone_id":  zoneID,
			"decibels": requestedDecibels,
			"duration": durationBlocks,
			"fee":      fee,
		})
	}
	return id, nil
}

// Approve opens the permit's window. Only the owning zone's owner may
// approve, and re-approval is rejected rather than treated as a no-op.
func (m *Manager) Approve(ctx context.Context, caller contracts.Principal, permitID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.store.Get(ctx, permitID)
	if err != nil {
		return err
	}
	owner, err := m.zones.Owner(ctx, p.ZoneID)
	if err != nil {
		return err
	}
	if caller != owner {
		return contracts.ErrUnauthorized
	}
	if p.Approved {
		return contracts.ErrPermitExists
	}

	now := m.blocks.Height()
	p.Approved = true
	p.StartBlock = now
	p.EndBlock = now + p.DurationBlocks
	if err := m.store.Put(ctx, p); err != nil {
		return err
	}

	if m.rec != nil {
		_ = m.rec.Record(ctx, caller, audit.ActionApprovePermit, audit.PermitResource(permitID), map[string]interface{}{
			"start_block": p.StartBlock,
			"end_block":   p.EndBlock,
		})
	}
	return nil
}

// Get returns the permit record.
func (m *Manager) Get(ctx context.Context, permitID uint64) (Permit, error) {
	return m.store.Get(ctx, permitID)
}
