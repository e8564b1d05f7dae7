//go:build property
// +build property

// Property-based checks for the allowance ledger accounting invariants.
package allowance_test

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/allowance"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

// Property: for any sequence of transfers against a fresh grant,
// used <= total holds for every record afterwards, and capacity is conserved.
func TestTransferPreservesAccounting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	holders := []contracts.Principal{"h1", "h2", "h3"}

	properties.Property("used <= total and spendable is conserved", prop.ForAll(
		func(grant uint64, amounts []uint64) bool {
			ctx := context.Background()
			blocks := contracts.NewManualBlocks(1)
			zones := zone.NewRegistry(zone.NewMemoryStore(), nil)
			zoneID, err := zones.CreateZone(ctx, "owner", "Z", 80, false)
			require.NoError(t, err)

			ledger := allowance.NewLedger(allowance.NewMemoryStore(), zones, blocks)
			if err := ledger.Allocate(ctx, "owner", zoneID, holders[0], grant, 100); err != nil {
				return grant == 0 // zero grants are rejected, everything else must succeed
			}

			for i, amt := range amounts {
				from := holders[i%len(holders)]
				to := holders[(i+1)%len(holders)]
				_ = ledger.Transfer(ctx, zoneID, from, to, amt) // rejected transfers are fine

				var spendable uint64
				for _, h := range holders {
					a, err := ledger.Get(ctx, zoneID, h)
					if err != nil {
						continue
					}
					if a.Used > a.Total {
						return false
					}
					spendable += a.Spendable()
				}
				if spendable != grant {
					return false
				}
			}
			return true
		},
		gen.UInt64Range(1, 1_000_000),
		gen.SliceOf(gen.UInt64Range(0, 2_000_000)),
	))

	properties.TestingRun(t)
}
