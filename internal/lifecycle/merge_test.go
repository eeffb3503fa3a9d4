package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

func ts(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

func sentFields() model.LifeCycle {
	return model.LifeCycle{
		SrcChain:            vaa.ChainIDEthereum,
		DestChain:           vaa.ChainIDArbitrum,
		SourceToken:         "aa",
		TokenAmount:         "1000",
		TransferSentTxHash:  "0x01",
		TransferBlockHeight: 10,
		TransferTime:        ts(100),
		VaaID:               "2/00000000000000000000000000000000000000000000000000000000deadbeef/7",
		NttTransferKey:      "mgr/recipient/7",
	}
}

func redeemedFields() model.LifeCycle {
	return model.LifeCycle{
		RedeemedTxHash:      "0x02",
		RedeemedBlockHeight: 20,
		RedeemTime:          ts(200),
		DestChain:           vaa.ChainIDArbitrum,
		// Not whitelisted for redemption.
		SrcChain: vaa.ChainIDSolana,
	}
}

func TestMerge_OrderIndependent(t *testing.T) {
	base := model.LifeCycle{Digest: "abc"}

	a, err := Merge(base, sentFields(), model.EventTransferSent)
	require.NoError(t, err)
	a, err = Merge(a, redeemedFields(), model.EventTransferRedeemed)
	require.NoError(t, err)

	b, err := Merge(base, redeemedFields(), model.EventTransferRedeemed)
	require.NoError(t, err)
	b, err = Merge(b, sentFields(), model.EventTransferSent)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "abc", a.Digest)
	assert.Equal(t, vaa.ChainIDArbitrum, a.DestChain)
	assert.Equal(t, vaa.ChainIDEthereum, a.SrcChain)
	assert.Equal(t, "0x01", a.TransferSentTxHash)
	assert.Equal(t, "0x02", a.RedeemedTxHash)
	assert.Equal(t, uint64(20), a.RedeemedBlockHeight)
}

func TestMerge_OnlyWhitelistedFields(t *testing.T) {
	all := sentFields()
	all.RedeemedTxHash = "0x02"
	all.InboundTransferQueuedTime = ts(50)

	out, err := Merge(model.LifeCycle{Digest: "d"}, all, model.EventInboundTransferQueued)
	require.NoError(t, err)
	assert.Equal(t, model.LifeCycle{Digest: "d", InboundTransferQueuedTime: ts(50)}, out)

	out, err = Merge(model.LifeCycle{Digest: "d"}, all, model.EventTransferRedeemed)
	require.NoError(t, err)
	assert.Equal(t, "0x02", out.RedeemedTxHash)
	assert.Empty(t, out.TransferSentTxHash)
	assert.Nil(t, out.InboundTransferQueuedTime)
}

func TestMerge_RedeemFirstRecordsDestination(t *testing.T) {
	rec, err := Merge(model.LifeCycle{Digest: "abc"}, redeemedFields(), model.EventTransferRedeemed)
	require.NoError(t, err)
	assert.Equal(t, vaa.ChainIDArbitrum, rec.DestChain)
	assert.Zero(t, rec.SrcChain)
	assert.Empty(t, rec.TransferSentTxHash)
}

func TestMerge_ZeroValuesDoNotClear(t *testing.T) {
	rec, err := Merge(model.LifeCycle{Digest: "d"}, sentFields(), model.EventTransferSent)
	require.NoError(t, err)

	again, err := Merge(rec, model.LifeCycle{TransferSentTxHash: "0x01"}, model.EventTransferSent)
	require.NoError(t, err)
	assert.Equal(t, rec, again)
}

func TestMerge_IsRelaySticky(t *testing.T) {
	rec, err := Merge(model.LifeCycle{Digest: "d"}, model.LifeCycle{IsRelay: true}, model.EventRelayRequested)
	require.NoError(t, err)
	rec, err = Merge(rec, sentFields(), model.EventTransferSent)
	require.NoError(t, err)
	assert.True(t, rec.IsRelay)
}

func TestMerge_Idempotent(t *testing.T) {
	once, err := Merge(model.LifeCycle{Digest: "d"}, sentFields(), model.EventTransferSent)
	require.NoError(t, err)
	twice, err := Merge(once, sentFields(), model.EventTransferSent)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestMerge_CopiesTimes(t *testing.T) {
	fields := model.LifeCycle{RedeemTime: ts(5)}
	out, err := Merge(model.LifeCycle{Digest: "d"}, fields, model.EventTransferRedeemed)
	require.NoError(t, err)

	*fields.RedeemTime = time.Unix(9, 0)
	assert.Equal(t, int64(5), out.RedeemTime.Unix())
}

func TestMerge_UnknownKind(t *testing.T) {
	_, err := Merge(model.LifeCycle{}, sentFields(), model.EventKind("bogus"))
	assert.ErrorIs(t, err, ErrUnknownEventKind)
	assert.False(t, KnownKind("bogus"))
	assert.True(t, KnownKind(model.EventOutboxReleased))
}

func TestMerge_DigestMismatch(t *testing.T) {
	_, err := Merge(model.LifeCycle{Digest: "a"}, model.LifeCycle{Digest: "b"}, model.EventTransferSent)
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestMerge_StagedKinds(t *testing.T) {
	rec := model.LifeCycle{Digest: "d"}
	var err error

	rec, err = Merge(rec, model.LifeCycle{
		SrcChain:                       vaa.ChainIDSolana,
		DestChain:                      vaa.ChainIDEthereum,
		TokenAmount:                    "5",
		OutboundTransferQueuedTime:     ts(1),
		OutboundTransferReleasableTime: ts(2),
		RedeemTime:                     ts(3),
	}, model.EventOutboxTransferCreated)
	require.NoError(t, err)
	assert.Nil(t, rec.RedeemTime)

	rec, err = Merge(rec, model.LifeCycle{VaaID: "1/ab/2", TransferTime: ts(4)}, model.EventOutboxReleased)
	require.NoError(t, err)

	rec, err = Merge(rec, model.LifeCycle{RedeemTime: ts(6), RedeemedTxHash: "0x9"}, model.EventInboxReleased)
	require.NoError(t, err)

	assert.Equal(t, vaa.ChainIDSolana, rec.SrcChain)
	assert.Equal(t, "1/ab/2", rec.VaaID)
	assert.Equal(t, int64(6), rec.RedeemTime.Unix())
	assert.Equal(t, int64(2), rec.OutboundTransferReleasableTime.Unix())
}
