// Package audit records receipts for committed state transitions. Receipts
// are evidence, not state: engines emit them best-effort after a transition
// commits, and a recorder failure never rolls a transition back.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/canonicalize"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// Transition actions.
const (
	ActionCreateZone     = "zone.create"
	ActionAllocate       = "allowance.allocate"
	ActionTransfer       = "allowance.transfer"
	ActionApplyPermit    = "permit.apply"
	ActionApprovePermit  = "permit.approve"
	ActionCreateOffer    = "trade.offer"
	ActionAcceptOffer    = "trade.accept"
	ActionCreateProposal = "governance.propose"
	ActionVote           = "governance.vote"
	ActionExecute        = "governance.execute"
	ActionReportNoise    = "noise.report"
)

// Resource name helpers.
func ZoneResource(id uint64) string     { return fmt.Sprintf("zone/%d", id) }
func PermitResource(id uint64) string   { return fmt.Sprintf("permit/%d", id) }
func OfferResource(id uint64) string    { return fmt.Sprintf("offer/%d", id) }
func ProposalResource(id uint64) string { return fmt.Sprintf("proposal/%d", id) }
func AllowanceResource(zoneID uint64, holder contracts.Principal) string {
	return fmt.Sprintf("allowance/%d/%s", zoneID, holder)
}
func ReadingResource(zoneID, height uint64) string {
	return fmt.Sprintf("reading/%d/%d", zoneID, height)
}

// Receipt is an immutable record of one committed transition.
type Receipt struct {
	ID          string                 `json:"id"`
	Actor       string                 `json:"actor"`
	Action      string                 `json:"action"`
	Resource    string                 `json:"resource"`
	Height      uint64                 `json:"height"`
	Timestamp   time.Time              `json:"timestamp"`
	ContentHash string                 `json:"content_hash"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Recorder accepts transition receipts.
type Recorder interface {
	Record(ctx context.Context, actor contracts.Principal, action, resource string, metadata map[string]interface{}) error
}

// ReceiptStore persists receipts.
type ReceiptStore interface {
	Append(ctx context.Context, r Receipt) error
	List(ctx context.Context, limit int) ([]Receipt, error)
}

// StoreRecorder builds receipts (uuid id, canonical content hash, current
// block height) and appends them to a ReceiptStore.
type StoreRecorder struct {
	store  ReceiptStore
	blocks contracts.BlockSource
	now    func() time.Time
}

// NewStoreRecorder creates a recorder writing to the given store.
func NewStoreRecorder(store ReceiptStore, blocks contracts.BlockSource) *StoreRecorder {
	return &StoreRecorder{store: store, blocks: blocks, now: time.Now}
}

// WithClock overrides the clock for testing.
func (r *StoreRecorder) WithClock(now func() time.Time) *StoreRecorder {
	r.now = now
	return r
}

func (r *StoreRecorder) Record(ctx context.Context, actor contracts.Principal, action, resource string, metadata map[string]interface{}) error {
	var height uint64
	if r.blocks != nil {
		height = r.blocks.Height()
	}
	rec := Receipt{
		ID:        uuid.New().String(),
		Actor:     string(actor),
		Action:    action,
		Resource:  resource,
		Height:    height,
		Timestamp: r.now().UTC(),
		Metadata:  metadata,
	}
	hash, err := canonicalize.CanonicalHash(struct {
		Actor    string                 `json:"actor"`
		Action   string                 `json:"action"`
		Resource string                 `json:"resource"`
		Height   uint64                 `json:"height"`
		Metadata map[string]interface{} `json:"metadata,omitempty"`
	}{rec.Actor, rec.Action, rec.Resource, rec.Height, rec.Metadata})
	if err != nil {
		return err
	}
	rec.ContentHash = "sha256:" + hash
	return r.store.Append(ctx, rec)
}

// MemoryReceipts is an in-memory ReceiptStore.
type MemoryReceipts struct {
	mu       sync.RWMutex
	receipts []Receipt
}

func NewMemoryReceipts() *MemoryReceipts {
	return &MemoryReceipts{}
}

func (s *MemoryReceipts) Append(ctx context.Context, r Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *MemoryReceipts) List(ctx context.Context, limit int) ([]Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.receipts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Receipt, n)
	copy(out, s.receipts[len(s.receipts)-n:])
	return out, nil
}
