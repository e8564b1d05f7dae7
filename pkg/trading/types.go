// Package trading implements the tokenized allowance market: offers, the
// ownership-token facility, and atomic acceptance that composes the token
// transfer with the allowance ledger's transfer primitive.
package trading

import (
	"context"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// Offer is a for-sale claim on a quantity of the seller's allowance. Its
// identity is the token id minted alongside it. Offers deactivate on
// acceptance and are never reactivated or deleted.
type Offer struct {
	TokenID       uint64              `json:"token_id"`
	Seller        contracts.Principal `json:"seller"`
	Price         uint64              `json:"price"`
	ZoneID        uint64              `json:"zone_id"`
	DecibelAmount uint64              `json:"decibel_amount"`
	Active        bool                `json:"active"`
}

// Store persists trade offers keyed by token id.
// Implementations return contracts.ErrNotFound for absent offers.
type Store interface {
	Get(ctx context.Context, tokenID uint64) (Offer, error)
	Put(ctx context.Context, o Offer) error
}

// AllowanceLedger is the slice of the allowance ledger the engine needs.
type AllowanceLedger interface {
	Spendable(ctx context.Context, zoneID uint64, holder contracts.Principal) (uint64, error)
	Transfer(ctx context.Context, zoneID uint64, from, to contracts.Principal, amount uint64) error
}
