package governance_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/governance"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

type fixture struct {
	engine *governance.Engine
	zones  *zone.Registry
	blocks *contracts.ManualBlocks
	zoneID uint64
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	blocks := contracts.NewManualBlocks(1000)
	zones := zone.NewRegistry(zone.NewMemoryStore(), nil)
	zoneID, err := zones.CreateZone(ctx, "alice", "Riverside", 80, false)
	require.NoError(t, err)

	return fixture{
		engine: governance.NewEngine(governance.NewMemoryStore(), zones, blocks),
		zones:  zones,
		blocks: blocks,
		zoneID: zoneID,
	}
}

func castVotes(t *testing.T, f fixture, proposalID uint64, yes, no int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < yes; i++ {
		voter := contracts.Principal(fmt.Sprintf("yes-voter-%d", i))
		require.NoError(t, f.engine.CastVote(ctx, voter, proposalID, true))
	}
	for i := 0; i < no; i++ {
		voter := contracts.Principal(fmt.Sprintf("no-voter-%d", i))
		require.NoError(t, f.engine.CastVote(ctx, voter, proposalID, false))
	}
}

func TestCreateProposal_Window(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	id, err := f.engine.CreateProposal(ctx, "carol", f.zoneID, "Lower the ceiling", "nights are loud", 60)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	p, err := f.engine.GetProposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), p.StartBlock)
	assert.Equal(t, uint64(1144), p.EndBlock)
	assert.True(t, p.Open(1143))
	assert.False(t, p.Open(1144))
}

func TestCreateProposal_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.engine.CreateProposal(ctx, "carol", 99, "t", "d", 60)
	assert.ErrorIs(t, err, contracts.ErrZoneNotFound)

	_, err = f.engine.CreateProposal(ctx, "carol", f.zoneID, "t", "d", 25)
	assert.ErrorIs(t, err, contracts.ErrInvalidDecibel)

	_, err = f.engine.CreateProposal(ctx, "carol", f.zoneID, "t", "d", 125)
	assert.ErrorIs(t, err, contracts.ErrInvalidDecibel)
}

func TestCastVote_TallyAndRecord(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	id, err := f.engine.CreateProposal(ctx, "carol", f.zoneID, "t", "d", 60)
	require.NoError(t, err)

	require.NoError(t, f.engine.CastVote(ctx, "dave", id, true))
	require.NoError(t, f.engine.CastVote(ctx, "erin", id, false))

	p, err := f.engine.GetProposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.YesVotes)
	assert.Equal(t, uint64(1), p.NoVotes)

	v, err := f.engine.GetVote(ctx, id, "dave")
	require.NoError(t, err)
	assert.True(t, v.Support)
}

func TestCastVote_OncePerVoter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	id, err := f.engine.CreateProposal(ctx, "carol", f.zoneID, "t", "d", 60)
	require.NoError(t, err)

	require.NoError(t, f.engine.CastVote(ctx, "dave", id, true))
	err = f.engine.CastVote(ctx, "dave", id, false)
	assert.ErrorIs(t, err, contracts.ErrAlreadyVoted)

	p, err := f.engine.GetProposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.YesVotes)
	assert.Equal(t, uint64(0), p.NoVotes)
}

func TestCastVote_AfterWindowCloses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	id, err := f.engine.CreateProposal(ctx, "carol", f.zoneID, "t", "d", 60)
	require.NoError(t, err)

	f.blocks.Advance(governance.VotingWindowBlocks)
	err = f.engine.CastVote(ctx, "dave", id, true)
	assert.ErrorIs(t, err, contracts.ErrVotingPeriodActive)
}

func TestExecute_BeforeWindowCloses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	id, err := f.engine.CreateProposal(ctx, "carol", f.zoneID, "t", "d", 60)
	require.NoError(t, err)
	castVotes(t, f, id, 8, 3)

	err = f.engine.Execute(ctx, "carol", id)
	assert.ErrorIs(t, err, contracts.ErrVotingPeriodActive)
}

func TestExecute_QuorumAndMajority(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// 6 yes / 3 no: a majority, but 9 total misses the quorum of 10.
	under, err := f.engine.CreateProposal(ctx, "carol", f.zoneID, "t", "d", 60)
	require.NoError(t, err)
	castVotes(t, f, under, 6, 3)

	// 8 yes / 3 no: 11 total meets quorum, yes carries.
	carried, err := f.engine.CreateProposal(ctx, "carol", f.zoneID, "t", "d", 60)
	require.NoError(t, err)
	castVotes(t, f, carried, 8, 3)

	// 6 yes / 6 no: quorum met, but a tie does not carry.
	tied, err := f.engine.CreateProposal(ctx, "carol", f.zoneID, "t", "d", 55)
	require.NoError(t, err)
	castVotes(t, f, tied, 6, 6)

	f.blocks.Advance(governance.VotingWindowBlocks)

	assert.ErrorIs(t, f.engine.Execute(ctx, "carol", under), contracts.ErrInvalidVote)
	assert.ErrorIs(t, f.engine.Execute(ctx, "carol", tied), contracts.ErrInvalidVote)

	require.NoError(t, f.engine.Execute(ctx, "carol", carried))
	z, err := f.zones.Get(ctx, f.zoneID)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), z.MaxDecibel)

	p, err := f.engine.GetProposal(ctx, carried)
	require.NoError(t, err)
	assert.True(t, p.Executed)
}

func TestExecute_OnlyOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	id, err := f.engine.CreateProposal(ctx, "carol", f.zoneID, "t", "d", 60)
	require.NoError(t, err)
	castVotes(t, f, id, 8, 3)
	f.blocks.Advance(governance.VotingWindowBlocks)

	require.NoError(t, f.engine.Execute(ctx, "carol", id))
	err = f.engine.Execute(ctx, "carol", id)
	assert.ErrorIs(t, err, contracts.ErrAlreadyExists)
}

func TestExecute_MissingProposal(t *testing.T) {
	f := setup(t)

	err := f.engine.Execute(context.Background(), "carol", 99)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}
