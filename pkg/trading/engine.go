package trading

import (
	"context"
	"errors"
	"sync"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/audit"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// Engine is the trading engine.
type Engine struct {
	mu     sync.Mutex
	store  Store
	ledger AllowanceLedger
	tokens TokenFacility
	rec    audit.Recorder
}

// NewEngine creates a trading engine over the given store, allowance ledger,
// and token facility.
func NewEngine(store Store, ledger AllowanceLedger, tokens TokenFacility) *Engine {
	return &Engine{store: store, ledger: ledger, tokens: tokens}
}

// WithRecorder attaches an audit recorder.
func (e *Engine) WithRecorder(rec audit.Recorder) *Engine {
	e.rec = rec
	return e
}

// CreateOffer lists decibelAmount of the caller's allowance for sale and
// mints the ownership token (id = last + 1) to the caller.
//
// Nothing is reserved from the allowance at this point: the seller keeps the
// capacity until an acceptance debits it, so a seller can list offers whose
// combined amount exceeds what they can actually deliver. Acceptance-time
// re-validation is the only guard.
func (e *Engine) CreateOffer(ctx context.Context, caller contracts.Principal, zoneID, decibelAmount, price uint64) (uint64, error) {
	if price == 0 {
		return 0, contracts.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	spendable, err := e.ledger.Spendable(ctx, zoneID, caller)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			return 0, contracts.ErrInsufficientAllowance
		}
		return 0, err
	}
	if spendable < decibelAmount {
		return 0, contracts.ErrInsufficientAllowance
	}

	last, err := e.tokens.LastID(ctx)
	if err != nil {
		return 0, err
	}
	tokenID := last + 1
	if err := e.tokens.Mint(ctx, tokenID, caller); err != nil {
		return 0, err
	}

	o := Offer{
		TokenID:       tokenID,
		Seller:        caller,
		Price:         price,
		ZoneID:        zoneID,
		DecibelAmount: decibelAmount,
		Active:        true,
	}
	if err := e.store.Put(ctx, o); err != nil {
		return 0, err
	}

	if e.rec != nil {
		_ = e.rec.Record(ctx, caller, audit.ActionCreateOffer, audit.OfferResource(tokenID), map[string]interface{}{
			"zone_id": zoneID,
			"amount":  decibelAmount,
			"price":   price,
		})
	}
	return tokenID, nil
}

// AcceptOffer settles an active offer as one transition: the token moves
// seller to buyer, the allowance ledger debits the seller and credits the
// buyer by the offer amount, and the offer deactivates. If the seller's
// capacity has meanwhile dropped below the offer amount the whole transition
// fails and the token keeps its prior owner.
func (e *Engine) AcceptOffer(ctx context.Context, caller contracts.Principal, tokenID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.store.Get(ctx, tokenID)
	if err != nil {
		return err
	}
	if !o.Active {
		return contracts.ErrNotFound
	}
	if caller == o.Seller {
		return contracts.ErrUnauthorized
	}

	// The token must still sit with the seller before anything moves.
	owner, err := e.tokens.OwnerOf(ctx, tokenID)
	if err != nil {
		return err
	}
	if owner != o.Seller {
		return contracts.ErrUnauthorized
	}

	// The allowance transfer re-validates the seller's capacity; a failure
	// here aborts the transition before any state has changed.
	if err := e.ledger.Transfer(ctx, o.ZoneID, o.Seller, caller, o.DecibelAmount); err != nil {
		return err
	}
	if err := e.tokens.Transfer(ctx, tokenID, o.Seller, caller); err != nil {
		return err
	}

	o.Active = false
	if err := e.store.Put(ctx, o); err != nil {
		return err
	}

	if e.rec != nil {
		_ = e.rec.Record(ctx, caller, audit.ActionAcceptOffer, audit.OfferResource(tokenID), map[string]interface{}{
			"zone_id": o.ZoneID,
			"amount":  o.DecibelAmount,
			"price":   o.Price,
			"seller":  string(o.Seller),
		})
	}
	return nil
}

// GetOffer returns the offer recorded under the token id.
func (e *Engine) GetOffer(ctx context.Context, tokenID uint64) (Offer, error) {
	return e.store.Get(ctx, tokenID)
}

// LastTokenID returns the highest minted token id.
func (e *Engine) LastTokenID(ctx context.Context) (uint64, error) {
	return e.tokens.LastID(ctx)
}

// TokenOwner returns the current owner of a token.
func (e *Engine) TokenOwner(ctx context.Context, tokenID uint64) (contracts.Principal, error) {
	return e.tokens.OwnerOf(ctx, tokenID)
}

// TokenURI returns the opaque metadata URI for a token.
func (e *Engine) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	return e.tokens.TokenURI(ctx, tokenID)
}
