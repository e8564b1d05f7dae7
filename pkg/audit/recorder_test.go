package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/audit"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

func TestRecordBuildsReceipt(t *testing.T) {
	store := audit.NewMemoryReceipts()
	blocks := contracts.NewManualBlocks(42)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := audit.NewStoreRecorder(store, blocks).WithClock(func() time.Time { return fixed })

	err := rec.Record(context.Background(), "alice", audit.ActionCreateZone, audit.ZoneResource(1),
		map[string]interface{}{"max_decibel": 70})
	require.NoError(t, err)

	receipts, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, receipts, 1)

	r := receipts[0]
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "alice", r.Actor)
	assert.Equal(t, "zone.create", r.Action)
	assert.Equal(t, "zone/1", r.Resource)
	assert.Equal(t, uint64(42), r.Height)
	assert.Equal(t, fixed, r.Timestamp)
	assert.Contains(t, r.ContentHash, "sha256:")
}

func TestContentHashIsDeterministic(t *testing.T) {
	ctx := context.Background()
	hashOf := func() string {
		store := audit.NewMemoryReceipts()
		rec := audit.NewStoreRecorder(store, contracts.NewManualBlocks(7))
		require.NoError(t, rec.Record(ctx, "bob", audit.ActionVote, audit.ProposalResource(3),
			map[string]interface{}{"support": true, "weight": 1}))
		receipts, err := store.List(ctx, 1)
		require.NoError(t, err)
		return receipts[0].ContentHash
	}
	assert.Equal(t, hashOf(), hashOf())
}

func TestListHonorsLimit(t *testing.T) {
	ctx := context.Background()
	store := audit.NewMemoryReceipts()
	rec := audit.NewStoreRecorder(store, contracts.NewManualBlocks(0))
	for i := 0; i < 5; i++ {
		require.NoError(t, rec.Record(ctx, "alice", audit.ActionReportNoise, audit.ReadingResource(1, uint64(i)), nil))
	}

	receipts, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, "reading/1/3", receipts[0].Resource)
	assert.Equal(t, "reading/1/4", receipts[1].Resource)
}
