package zone_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

func newRegistry() *zone.Registry {
	return zone.NewRegistry(zone.NewMemoryStore(), zone.NewMemoryPremiums())
}

func TestCreateZone_AssignsSequentialIDs(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	id1, err := reg.CreateZone(ctx, "alice", "Riverside", 80, false)
	require.NoError(t, err)
	id2, err := reg.CreateZone(ctx, "bob", "Old Town", 45, true)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)
}

func TestCreateZone_CallerBecomesOwner(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	id, err := reg.CreateZone(ctx, "alice", "Riverside", 80, false)
	require.NoError(t, err)

	owner, err := reg.Owner(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, contracts.Principal("alice"), owner)
}

func TestCreateZone_DecibelBounds(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	_, err := reg.CreateZone(ctx, "alice", "Too Low", 29, false)
	assert.ErrorIs(t, err, contracts.ErrInvalidDecibel)

	_, err = reg.CreateZone(ctx, "alice", "Too High", 121, false)
	assert.ErrorIs(t, err, contracts.ErrInvalidDecibel)

	_, err = reg.CreateZone(ctx, "alice", "Edge Low", 30, false)
	assert.NoError(t, err)

	_, err = reg.CreateZone(ctx, "alice", "Edge High", 120, false)
	assert.NoError(t, err)
}

func TestCreateZone_QuietZoneCeiling(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	// Quiet zones may not exceed 50 dB.
	_, err := reg.CreateZone(ctx, "alice", "Loud Library", 51, true)
	assert.ErrorIs(t, err, contracts.ErrInvalidDecibel)

	id, err := reg.CreateZone(ctx, "alice", "Library", 50, true)
	require.NoError(t, err)

	z, err := reg.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, z.IsQuietZone)
	assert.Equal(t, zone.QuietZonePremium, z.PremiumMultiplier)
}

func TestCreateZone_FailureAdvancesNoCounter(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	_, err := reg.CreateZone(ctx, "alice", "Bad", 10, false)
	require.Error(t, err)

	id, err := reg.CreateZone(ctx, "alice", "Good", 60, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestPremium_SideIndexAndFallback(t *testing.T) {
	// Without a premium index, lookups fall back to the zone record.
	reg := zone.NewRegistry(zone.NewMemoryStore(), nil)
	ctx := context.Background()

	id, err := reg.CreateZone(ctx, "alice", "Library", 40, true)
	require.NoError(t, err)

	p, err := reg.Premium(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, zone.QuietZonePremium, p)

	// With the index populated, the same answer comes from the index.
	idx := zone.NewMemoryPremiums()
	reg2 := zone.NewRegistry(zone.NewMemoryStore(), idx)
	id2, err := reg2.CreateZone(ctx, "alice", "Plaza", 90, false)
	require.NoError(t, err)

	p2, err := reg2.Premium(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, zone.BasePremium, p2)
}

func TestGet_MissingZone(t *testing.T) {
	reg := newRegistry()

	_, err := reg.Get(context.Background(), 99)
	assert.ErrorIs(t, err, contracts.ErrZoneNotFound)

	_, err = reg.Owner(context.Background(), 99)
	assert.ErrorIs(t, err, contracts.ErrZoneNotFound)
}

func TestSetMaxDecibel_Overwrites(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	id, err := reg.CreateZone(ctx, "alice", "Riverside", 80, false)
	require.NoError(t, err)

	require.NoError(t, reg.SetMaxDecibel(ctx, id, 70))

	z, err := reg.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(70), z.MaxDecibel)

	assert.ErrorIs(t, reg.SetMaxDecibel(ctx, 99, 70), contracts.ErrZoneNotFound)
}

func TestSetUsage(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	id, err := reg.CreateZone(ctx, "alice", "Riverside", 80, false)
	require.NoError(t, err)

	require.NoError(t, reg.SetUsage(ctx, id, 63))

	z, err := reg.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(63), z.CurrentUsage)
}
