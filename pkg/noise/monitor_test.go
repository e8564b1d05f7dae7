package noise_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/noise"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

type fixture struct {
	monitor *noise.Monitor
	zones   *zone.Registry
	blocks  *contracts.ManualBlocks
	zoneID  uint64
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	blocks := contracts.NewManualBlocks(500)
	zones := zone.NewRegistry(zone.NewMemoryStore(), nil)
	zoneID, err := zones.CreateZone(ctx, "alice", "Riverside", 80, false)
	require.NoError(t, err)

	return fixture{
		monitor: noise.NewMonitor(noise.NewMemoryStore(), zones, blocks),
		zones:   zones,
		blocks:  blocks,
		zoneID:  zoneID,
	}
}

func TestReport_KeyedByHeight(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.monitor.Report(ctx, "sensor-1", f.zoneID, 72))

	r, err := f.monitor.Get(ctx, f.zoneID, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(72), r.Level)
	assert.Equal(t, contracts.Principal("sensor-1"), r.Reporter)
	assert.False(t, r.Verified) // schema field, never set here
}

func TestReport_FeedsZoneUsage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.monitor.Report(ctx, "sensor-1", f.zoneID, 72))

	z, err := f.zones.Get(ctx, f.zoneID)
	require.NoError(t, err)
	assert.Equal(t, uint64(72), z.CurrentUsage)
}

func TestReport_MissingZone(t *testing.T) {
	f := setup(t)

	err := f.monitor.Report(context.Background(), "sensor-1", 99, 72)
	assert.ErrorIs(t, err, contracts.ErrZoneNotFound)
}

func TestReport_OnePerBlock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.monitor.Report(ctx, "sensor-1", f.zoneID, 72))
	err := f.monitor.Report(ctx, "sensor-2", f.zoneID, 75)
	assert.ErrorIs(t, err, contracts.ErrAlreadyExists)

	f.blocks.Advance(1)
	assert.NoError(t, f.monitor.Report(ctx, "sensor-2", f.zoneID, 75))
}

func TestReadingChain_LinksAndVerifies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	levels := []uint64{61, 64, 58, 70}
	for _, lvl := range levels {
		require.NoError(t, f.monitor.Report(ctx, "sensor-1", f.zoneID, lvl))
		f.blocks.Advance(1)
	}

	first, err := f.monitor.Get(ctx, f.zoneID, 500)
	require.NoError(t, err)
	assert.Equal(t, "genesis", first.PrevHash)

	second, err := f.monitor.Get(ctx, f.zoneID, 501)
	require.NoError(t, err)
	assert.Equal(t, first.ContentHash, second.PrevHash)

	assert.NoError(t, f.monitor.VerifyChain(ctx, f.zoneID))
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	ctx := context.Background()
	blocks := contracts.NewManualBlocks(500)
	zones := zone.NewRegistry(zone.NewMemoryStore(), nil)
	zoneID, err := zones.CreateZone(ctx, "alice", "Riverside", 80, false)
	require.NoError(t, err)

	store := noise.NewMemoryStore()
	monitor := noise.NewMonitor(store, zones, blocks)

	require.NoError(t, monitor.Report(ctx, "sensor-1", zoneID, 61))
	blocks.Advance(1)
	require.NoError(t, monitor.Report(ctx, "sensor-1", zoneID, 64))

	// Rewrite the first reading's level behind the monitor's back.
	tampered, err := store.Get(ctx, zoneID, 500)
	require.NoError(t, err)
	tampered.Level = 30
	require.NoError(t, store.Append(ctx, tampered))

	assert.Error(t, monitor.VerifyChain(ctx, zoneID))
}
