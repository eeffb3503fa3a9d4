package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func testKey(t *testing.T, seq uint64) model.VaaKey {
	t.Helper()
	emitter, err := vaa.StringToAddress("0000000000000000000000003ee18b2214aff97000d974cf647e7c347e8fa585")
	require.NoError(t, err)
	return model.VaaKey{
		TxHash:         fmt.Sprintf("0x%02x", seq),
		EmitterChain:   vaa.ChainIDEthereum,
		EmitterAddress: emitter,
		Sequence:       seq,
	}
}

func TestStore_CheckpointFollowsStoredRanges(t *testing.T) {
	s := New(openTestDB(t), model.ScopeMessages)
	ctx := context.Background()
	chain := vaa.ChainIDEthereum
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	cp, err := s.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, s.StoreRange(ctx, chain, model.VaasByBlock{
		model.NewBlockKey(260, ts): {testKey(t, 1)},
		model.NewBlockKey(349, ts): {},
	}, true))

	cp, err = s.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, uint64(350), cp.NextBlock())

	require.NoError(t, s.StoreRange(ctx, chain, model.VaasByBlock{model.NewBlockKey(400, ts): {}}, true))
	cp, err = s.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(401), cp.NextBlock())

	// Replaying an older range never moves the checkpoint back.
	require.NoError(t, s.StoreRange(ctx, chain, model.VaasByBlock{model.NewBlockKey(260, ts): {testKey(t, 1)}}, true))
	cp, err = s.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), cp.LastBlockKey.Number)
}

func TestStore_StoreRangeIsIdempotent(t *testing.T) {
	gdb := openTestDB(t)
	s := New(gdb, model.ScopeMessages)
	ctx := context.Background()

	vaas := model.VaasByBlock{
		{Number: 10, Timestamp: "a"}: {testKey(t, 1), testKey(t, 2)},
		{Number: 11, Timestamp: "b"}: {},
		{Number: 12, Timestamp: "c"}: {},
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, s.StoreRange(ctx, vaa.ChainIDEthereum, vaas, true))
	}

	var messages, blocks int64
	require.NoError(t, gdb.Model(&observedMessage{}).Count(&messages).Error)
	require.NoError(t, gdb.Model(&observedBlock{}).Count(&blocks).Error)
	assert.Equal(t, int64(2), messages)
	// Block 11 is empty and not the highest key, so it is never stored.
	assert.Equal(t, int64(2), blocks)
}

func TestStore_ScopesAreIndependent(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	vaas := New(gdb, model.ScopeMessages)
	ntt := New(gdb, model.ScopeNTT)

	require.NoError(t, vaas.StoreRange(ctx, vaa.ChainIDEthereum, model.VaasByBlock{{Number: 50, Timestamp: "t"}: {}}, true))

	cp, err := ntt.GetCheckpoint(ctx, vaa.ChainIDEthereum)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestStore_SetAndDeleteCheckpoint(t *testing.T) {
	s := New(openTestDB(t), model.ScopeMessages)
	ctx := context.Background()
	chain := vaa.ChainIDEthereum

	require.NoError(t, s.StoreRange(ctx, chain, model.VaasByBlock{{Number: 500, Timestamp: "t"}: {}}, true))
	require.NoError(t, s.SetCheckpoint(ctx, chain, model.BlockKey{Number: 100, Timestamp: "t"}))

	cp, err := s.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), cp.LastBlockKey.Number)

	cps, err := s.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, cps, 1)

	require.NoError(t, s.DeleteCheckpoint(ctx, chain))
	cp, err = s.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestStore_SignedVaaTracking(t *testing.T) {
	s := New(openTestDB(t), model.ScopeMessages)
	ctx := context.Background()
	chain := vaa.ChainIDEthereum
	early, late, other := testKey(t, 1), testKey(t, 2), testKey(t, 3)

	// Signed before it was observed.
	n, err := s.MarkSigned(ctx, []string{early.MessageID()})
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.StoreRange(ctx, chain, model.VaasByBlock{
		{Number: 10, Timestamp: "a"}: {early, late, other},
	}, true))

	n, err = s.MarkSigned(ctx, []string{late.MessageID()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counts, err := s.CountMessages(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(3), counts[0].NumTotalMessages)
	assert.Equal(t, int64(1), counts[0].NumMessagesWithoutVaas)
	assert.Equal(t, model.BlockRowKey(chain, 10), counts[0].LastRowKey)

	missing, err := s.ListMissingVaas(ctx, chain, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, other.MessageID(), missing[0].MessageID)
}
