package allowance

import (
	"context"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/audit"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// Ledger is the allowance ledger engine. Every precondition is checked
// before any write, so a failed transition leaves no partial state.
type Ledger struct {
	mu     sync.Mutex
	store  Store
	zones  ZoneDirectory
	blocks contracts.BlockSource
	rec    audit.Recorder
}

// NewLedger creates an allowance ledger over the given store.
func NewLedger(store Store, zones ZoneDirectory, blocks contracts.BlockSource) *Ledger {
	return &Ledger{store: store, zones: zones, blocks: blocks}
}

// WithRecorder attaches an audit recorder.
func (l *Ledger) WithRecorder(rec audit.Recorder) *Ledger {
	l.rec = rec
	return l
}

// Allocate grants the recipient an allowance in the zone. Only the zone
// owner may allocate. This is a reset, not an additive grant: any existing
// record for (zone, recipient) is overwritten, used drops to 0, and expiry
// is recomputed from the current height.
func (l *Ledger) Allocate(ctx context.Context, caller contracts.Principal, zoneID uint64, recipient contracts.Principal, amount, durationBlocks uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	owner, err := l.zones.Owner(ctx, zoneID)
	if err != nil {
		return err
	}
	if caller != owner {
		return contracts.ErrUnauthorized
	}
	if amount == 0 {
		return contracts.ErrInvalidAmount
	}

	now := l.blocks.Height()
	a := Allowance{
		ZoneID:      zoneID,
		Holder:      recipient,
		Total:       amount,
		Used:        0,
		ExpiryBlock: now + durationBlocks,
	}
	if err := l.store.Put(ctx, a); err != nil {
		return err
	}

	if l.rec != nil {
		_ = l.rec.Record(ctx, caller, audit.ActionAllocate, audit.AllowanceResource(zoneID, recipient), map[string]interface{}{
			"amount":   amount,
			"duration": durationBlocks,
		})
	}
	return nil
}

// Transfer moves spendable capacity from one holder to another. The sender's
// used rises by amount; the receiver's total rises by amount (receiver record
// created zeroed if absent) and its expiry extends to the later of the two.
// Newly received allowance is immediately spendable.
//
// This is the primitive the trading engine composes with; it is exported so
// the host can also settle off-market transfers.
func (l *Ledger) Transfer(ctx context.Context, zoneID uint64, from, to contracts.Principal, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(ctx, zoneID, from, to, amount)
}

func (l *Ledger) transferLocked(ctx context.Context, zoneID uint64, from, to contracts.Principal, amount uint64) error {
	src, err := l.store.Get(ctx, zoneID, from)
	if err != nil {
		return err
	}
	if src.Spendable() < amount {
		return contracts.ErrInsufficientAllowance
	}

	dst, err := l.store.Get(ctx, zoneID, to)
	if err != nil {
		if err != contracts.ErrNotFound {
			return err
		}
		dst = Allowance{ZoneID: zoneID, Holder: to}
	}

	src.Used += amount
	dst.Total += amount
	if src.ExpiryBlock > dst.ExpiryBlock {
		dst.ExpiryBlock = src.ExpiryBlock
	}

	if err := l.store.Put(ctx, src); err != nil {
		return err
	}
	if err := l.store.Put(ctx, dst); err != nil {
		return err
	}

	if l.rec != nil {
		_ = l.rec.Record(ctx, from, audit.ActionTransfer, audit.AllowanceResource(zoneID, to), map[string]interface{}{
			"amount": amount,
		})
	}
	return nil
}

// Get returns the allowance record for (zone, holder).
func (l *Ledger) Get(ctx context.Context, zoneID uint64, holder contracts.Principal) (Allowance, error) {
	return l.store.Get(ctx, zoneID, holder)
}

// Spendable returns the holder's remaining capacity, or 0 with ErrNotFound
// if no record exists.
func (l *Ledger) Spendable(ctx context.Context, zoneID uint64, holder contracts.Principal) (uint64, error) {
	a, err := l.store.Get(ctx, zoneID, holder)
	if err != nil {
		return 0, err
	}
	return a.Spendable(), nil
}
