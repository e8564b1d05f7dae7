package zone

import (
	"context"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/audit"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// Registry is the zone registry engine. All writes go through the registry,
// which serializes them; reads go straight to the store.
type Registry struct {
	mu       sync.Mutex
	store    Store
	premiums PremiumIndex
	rec      audit.Recorder
}

// NewRegistry creates a registry over the given store. The premium index is
// optional; when nil, premium lookups read the zone record directly.
func NewRegistry(store Store, premiums PremiumIndex) *Registry {
	return &Registry{store: store, premiums: premiums}
}

// WithRecorder attaches an audit recorder. Receipts are best-effort and never
// fail a committed transition.
func (r *Registry) WithRecorder(rec audit.Recorder) *Registry {
	r.rec = rec
	return r
}

// CreateZone registers a new zone owned by the caller and returns its id.
// Quiet zones must stay at or below QuietZoneCeiling and carry the 2x premium.
func (r *Registry) CreateZone(ctx context.Context, caller contracts.Principal, name string, maxDecibel uint64, quiet bool) (uint64, error) {
	if maxDecibel < MinDecibel || maxDecibel > MaxDecibel {
		return 0, contracts.ErrInvalidDecibel
	}
	if quiet && maxDecibel > QuietZoneCeiling {
		return 0, contracts.ErrInvalidDecibel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.store.NextID(ctx)
	if err != nil {
		return 0, err
	}

	premium := BasePremium
	if quiet {
		premium = QuietZonePremium
	}
	z := Zone{
		ID:                id,
		Name:              name,
		MaxDecibel:        maxDecibel,
		IsQuietZone:       quiet,
		PremiumMultiplier: premium,
	}
	if err := r.store.Put(ctx, z); err != nil {
		return 0, err
	}
	if err := r.store.PutOwner(ctx, id, caller); err != nil {
		return 0, err
	}
	if r.premiums != nil {
		if err := r.premiums.Set(ctx, id, premium); err != nil {
			return 0, err
		}
	}

	if r.rec != nil {
		_ = r.rec.Record(ctx, caller, audit.ActionCreateZone, audit.ZoneResource(id), map[string]interface{}{
			"name":        name,
			"max_decibel": maxDecibel,
			"quiet":       quiet,
		})
	}
	return id, nil
}

// Get returns the zone record.
func (r *Registry) Get(ctx context.Context, id uint64) (Zone, error) {
	return r.store.Get(ctx, id)
}

// Owner returns the zone's owning principal.
func (r *Registry) Owner(ctx context.Context, id uint64) (contracts.Principal, error) {
	return r.store.GetOwner(ctx, id)
}

// Premium returns the zone's premium multiplier, preferring the side index
// and falling back to the zone record on a miss.
func (r *Registry) Premium(ctx context.Context, id uint64) (uint64, error) {
	if r.premiums != nil {
		if p, ok, err := r.premiums.Get(ctx, id); err == nil && ok {
			return p, nil
		}
	}
	z, err := r.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return z.PremiumMultiplier, nil
}

// SetMaxDecibel overwrites the zone's ceiling. Used by governance execution;
// bounds were validated when the proposal was created.
func (r *Registry) SetMaxDecibel(ctx context.Context, id, maxDecibel uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	z, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	z.MaxDecibel = maxDecibel
	return r.store.Put(ctx, z)
}

// SetUsage records the zone's last reported decibel level. Fed by the noise
// monitor only.
func (r *Registry) SetUsage(ctx context.Context, id, level uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	z, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	z.CurrentUsage = level
	return r.store.Put(ctx, z)
}
