package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	storemocks "github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store/mocks"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
	"go.uber.org/mock/gomock"
)

type fakeXAdder struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeXAdder) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	return redis.NewStringResult("1-0", f.err)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testVaas() model.VaasByBlock {
	return model.VaasByBlock{
		{Number: 11, Timestamp: "b"}: {{TxHash: "0x2", EmitterChain: vaa.ChainIDEthereum, Sequence: 2}},
		{Number: 10, Timestamp: "a"}: {{TxHash: "0x1", EmitterChain: vaa.ChainIDEthereum, Sequence: 1}},
		{Number: 12, Timestamp: "c"}: {},
	}
}

func TestPublishingStore_PublishesInBlockOrderAfterStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := storemocks.NewMockMessageStore(ctrl)
	adder := &fakeXAdder{}
	p := NewPublishingStore(next, adder, "observations", discardLogger())

	vaas := testVaas()
	next.EXPECT().StoreRange(gomock.Any(), vaa.ChainIDEthereum, vaas, true).Return(nil)

	require.NoError(t, p.StoreRange(context.Background(), vaa.ChainIDEthereum, vaas, true))
	require.Len(t, adder.calls, 2)
	assert.Equal(t, "observations", adder.calls[0].Stream)
	assert.Equal(t, "10/a", adder.calls[0].Values.(map[string]any)["block"])
	assert.Equal(t, "11/b", adder.calls[1].Values.(map[string]any)["block"])
}

func TestPublishingStore_SkipsPublishWhenStoreFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := storemocks.NewMockMessageStore(ctrl)
	adder := &fakeXAdder{}
	p := NewPublishingStore(next, adder, "observations", discardLogger())

	storeErr := errors.New("db down")
	next.EXPECT().StoreRange(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(storeErr)

	err := p.StoreRange(context.Background(), vaa.ChainIDEthereum, testVaas(), true)
	require.ErrorIs(t, err, storeErr)
	assert.Empty(t, adder.calls)
}

func TestPublishingStore_PublishErrorDoesNotFailStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := storemocks.NewMockMessageStore(ctrl)
	adder := &fakeXAdder{err: errors.New("redis unavailable")}
	p := NewPublishingStore(next, adder, "observations", discardLogger())

	next.EXPECT().StoreRange(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, p.StoreRange(context.Background(), vaa.ChainIDEthereum, testVaas(), false))
	assert.Len(t, adder.calls, 2)
}

func TestPublishingStore_DelegatesGetCheckpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := storemocks.NewMockMessageStore(ctrl)
	p := NewPublishingStore(next, &fakeXAdder{}, "observations", discardLogger())

	want := &model.Checkpoint{Chain: vaa.ChainIDEthereum, LastBlockKey: model.BlockKey{Number: 5}}
	next.EXPECT().GetCheckpoint(gomock.Any(), vaa.ChainIDEthereum).Return(want, nil)

	got, err := p.GetCheckpoint(context.Background(), vaa.ChainIDEthereum)
	require.NoError(t, err)
	assert.Same(t, want, got)
}
