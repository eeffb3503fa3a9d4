//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store/postgres"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

func emitter(t *testing.T) vaa.Address {
	t.Helper()
	addr, err := vaa.StringToAddress("0000000000000000000000003ee18b2214aff97000d974cf647e7c347e8fa585")
	require.NoError(t, err)
	return addr
}

func TestMessageRepo_Integration_IdempotentStoreAndMonotonicCheckpoint(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewMessageRepo(db, model.ScopeMessages)
	ctx := context.Background()
	chain := vaa.ChainIDEthereum

	cp, err := repo.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Nil(t, cp)

	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	key := model.VaaKey{TxHash: "0xabc", EmitterChain: chain, EmitterAddress: emitter(t), Sequence: 42}
	first := model.VaasByBlock{
		model.NewBlockKey(260, ts):                  {key},
		model.NewBlockKey(349, ts.Add(time.Minute)): {},
	}

	require.NoError(t, repo.StoreRange(ctx, chain, first, true))
	require.NoError(t, repo.StoreRange(ctx, chain, first, true))

	cp, err = repo.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, uint64(350), cp.NextBlock())

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM observed_messages`).Scan(&n))
	assert.Equal(t, 1, n)

	// An older range must not move the checkpoint back.
	require.NoError(t, repo.StoreRange(ctx, chain, model.VaasByBlock{model.NewBlockKey(100, ts): {}}, true))
	cp, err = repo.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(349), cp.LastBlockKey.Number)

	// Other scopes keep their own checkpoint.
	ntt := postgres.NewMessageRepo(db, model.ScopeNTT)
	cp, err = ntt.GetCheckpoint(ctx, chain)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestMessageRepo_Integration_SignedVaaBeforeObservation(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewMessageRepo(db, model.ScopeMessages)
	ctx := context.Background()
	chain := vaa.ChainIDEthereum

	key := model.VaaKey{TxHash: "0xabc", EmitterChain: chain, EmitterAddress: emitter(t), Sequence: 1}
	other := model.VaaKey{TxHash: "0xdef", EmitterChain: chain, EmitterAddress: emitter(t), Sequence: 2}

	updated, err := repo.MarkSigned(ctx, []string{key.MessageID()})
	require.NoError(t, err)
	assert.Zero(t, updated)

	ts := time.Now().UTC()
	require.NoError(t, repo.StoreRange(ctx, chain, model.VaasByBlock{
		model.NewBlockKey(10, ts): {key, other},
	}, true))

	counts, err := repo.CountMessages(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(2), counts[0].NumTotalMessages)
	assert.Equal(t, int64(1), counts[0].NumMessagesWithoutVaas)
	assert.Equal(t, model.BlockRowKey(chain, 10), counts[0].LastRowKey)

	missing, err := repo.ListMissingVaas(ctx, chain, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, other.MessageID(), missing[0].MessageID)

	updated, err = repo.MarkSigned(ctx, []string{other.MessageID()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
}

func TestLifeCycleRepo_Integration_ConcurrentInsertIfAbsent(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewLifeCycleRepo(db)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := db.BeginTx(ctx, nil)
			require.NoError(t, err)
			defer tx.Rollback()

			ok, err := repo.InsertIfAbsentTx(ctx, tx, &model.LifeCycle{Digest: "abc", TokenAmount: "1000"})
			require.NoError(t, err)
			require.NoError(t, tx.Commit())
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)

	lc, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, lc)
	assert.Equal(t, "1000", lc.TokenAmount)
}

func TestPendingKeyRepo_Integration_LinkResolveDelete(t *testing.T) {
	db := testDB(t)
	repo := postgres.NewPendingKeyRepo(db)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.LinkTx(ctx, tx, model.PendingOutbox, "item-1", "abc"))
	digest, err := repo.ResolveTx(ctx, tx, model.PendingOutbox, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", digest)
	require.NoError(t, repo.DeleteTx(ctx, tx, model.PendingOutbox, "item-1"))
	_, err = repo.ResolveTx(ctx, tx, model.PendingOutbox, "item-1")
	require.Error(t, err)
	require.NoError(t, tx.Commit())
}
