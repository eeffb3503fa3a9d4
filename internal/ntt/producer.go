package ntt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/chain"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/chain/evm"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
)

// Source is the EVM read surface the producer needs. *evm.Adapter satisfies it.
type Source interface {
	Chain() vaa.ChainID
	FinalizedHeight(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockTime(ctx context.Context, block uint64) (time.Time, error)
}

// Upserter receives lifecycle facts. *lifecycle.Reconciler satisfies it.
type Upserter interface {
	Upsert(ctx context.Context, digest string, fields model.LifeCycle, kind model.EventKind) (*model.LifeCycle, error)
}

type Config struct {
	Managers     []common.Address
	CoreContract common.Address
	// Relayer is the standard relayer contract; zero disables unwrapping.
	Relayer common.Address
}

// Producer scans NTT manager logs and feeds lifecycle facts to the
// reconciler. It runs under its own watcher scope, so the range it returns
// only carries the anchor block.
type Producer struct {
	src      Source
	sink     Upserter
	cfg      Config
	relayer  vaa.Address
	hasRelay bool
	label    string
	logger   *slog.Logger
}

var _ chain.Collaborator = (*Producer)(nil)

func NewProducer(src Source, sink Upserter, cfg Config, logger *slog.Logger) *Producer {
	p := &Producer{
		src:    src,
		sink:   sink,
		cfg:    cfg,
		label:  model.ChainLabel(src.Chain()),
		logger: logger.With("component", "ntt_producer", "chain", src.Chain().String()),
	}
	if cfg.Relayer != (common.Address{}) {
		copy(p.relayer[:], common.LeftPadBytes(cfg.Relayer.Bytes(), 32))
		p.hasRelay = true
	}
	return p
}

func (p *Producer) Chain() vaa.ChainID {
	return p.src.Chain()
}

func (p *Producer) FinalizedHeight(ctx context.Context) (uint64, error) {
	return p.src.FinalizedHeight(ctx)
}

// MessagesInRange processes every NTT event in [from, to]. Any failure to
// read or persist aborts the range so the watcher retries it whole; merges
// are idempotent.
func (p *Producer) MessagesInRange(ctx context.Context, from, to uint64) (model.VaasByBlock, error) {
	if from > to {
		return nil, fmt.Errorf("invalid block range [%d, %d]", from, to)
	}
	if len(p.cfg.Managers) == 0 {
		return nil, fmt.Errorf("no ntt managers configured for %s", p.src.Chain())
	}

	logs, err := p.src.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: p.cfg.Managers,
		Topics:    [][]common.Hash{Topics},
	})
	if err != nil {
		return nil, err
	}

	coreLogs := make(map[uint64][]types.Log)
	for _, l := range logs {
		if l.Removed {
			continue
		}
		kind, ok := KindOf(l)
		if !ok {
			continue
		}
		ts, err := p.src.BlockTime(ctx, l.BlockNumber)
		if err != nil {
			return nil, err
		}
		facts, err := p.decode(ctx, l, kind, ts, coreLogs)
		if err != nil {
			return nil, err
		}
		for _, f := range facts {
			if _, err := p.sink.Upsert(ctx, f.digest, f.fields, kind); err != nil {
				return nil, fmt.Errorf("save %s for tx %s: %w", kind, l.TxHash.Hex(), err)
			}
		}
		metrics.LifecycleEventsDecoded.WithLabelValues(p.label, kind.String()).Inc()
	}

	ts, err := p.src.BlockTime(ctx, to)
	if errors.Is(err, ethereum.NotFound) {
		return model.VaasByBlock{}, nil
	}
	if err != nil {
		return nil, err
	}
	return model.VaasByBlock{model.NewBlockKey(to, ts): {}}, nil
}

type fact struct {
	digest string
	fields model.LifeCycle
}

func (p *Producer) decode(
	ctx context.Context,
	l types.Log,
	kind model.EventKind,
	ts time.Time,
	coreLogs map[uint64][]types.Log,
) ([]fact, error) {
	switch kind {
	case model.EventTransferSent:
		return p.transferSent(ctx, l, ts, coreLogs)
	case model.EventTransferRedeemed:
		digest, err := digestFromTopic(l)
		if err != nil {
			p.logger.Warn("skipping TransferRedeemed", "tx_hash", l.TxHash.Hex(), "error", err)
			return nil, nil
		}
		// Redemption happens on the destination chain.
		return []fact{{digest: digest, fields: model.LifeCycle{
			DestChain:           p.src.Chain(),
			RedeemedTxHash:      hexNoPrefix(l.TxHash.Bytes()),
			RedeemedBlockHeight: l.BlockNumber,
			RedeemTime:          &ts,
		}}}, nil
	default:
		digest, err := digestFromData(l)
		if err != nil {
			p.logger.Warn("skipping queue event", "event", kind, "tx_hash", l.TxHash.Hex(), "error", err)
			return nil, nil
		}
		var fields model.LifeCycle
		switch kind {
		case model.EventInboundTransferQueued:
			fields.InboundTransferQueuedTime = &ts
		case model.EventOutboundTransferQueued:
			fields.OutboundTransferQueuedTime = &ts
		case model.EventOutboundTransferRateLimited:
			fields.OutboundTransferReleasableTime = &ts
		}
		return []fact{{digest: digest, fields: fields}}, nil
	}
}

// transferSent correlates the event with the core messages published in the
// same transaction. Each parseable transceiver message yields one fact.
func (p *Producer) transferSent(
	ctx context.Context,
	l types.Log,
	ts time.Time,
	coreLogs map[uint64][]types.Log,
) ([]fact, error) {
	ev, err := DecodeTransferSent(l.Data)
	if err != nil {
		p.logger.Warn("skipping TransferSent", "tx_hash", l.TxHash.Hex(), "error", err)
		return nil, nil
	}

	published, ok := coreLogs[l.BlockNumber]
	if !ok {
		block := new(big.Int).SetUint64(l.BlockNumber)
		published, err = p.src.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: block,
			ToBlock:   block,
			Addresses: []common.Address{p.cfg.CoreContract},
			Topics:    [][]common.Hash{{evm.LogMessagePublishedTopic}},
		})
		if err != nil {
			return nil, err
		}
		coreLogs[l.BlockNumber] = published
	}

	chainID := p.src.Chain()
	transferKey := TransferKey(l.Address, ev.Recipient, ev.Sequence)
	var facts []fact
	for _, cl := range published {
		if cl.TxHash != l.TxHash || cl.Removed {
			continue
		}
		msg, err := evm.DecodeLogMessagePublished(cl)
		if err != nil {
			p.logger.Warn("skipping undecodable core log", "tx_hash", cl.TxHash.Hex(), "error", err)
			continue
		}
		isRelay := p.hasRelay && msg.Emitter == p.relayer
		payload := msg.Payload
		if isRelay {
			if payload, err = UnwrapDeliveryInstruction(payload); err != nil {
				p.logger.Warn("skipping relayer message", "tx_hash", cl.TxHash.Hex(), "error", err)
				continue
			}
		}
		tm, err := ParseTransceiverMessage(payload)
		if err != nil {
			p.logger.Debug("core message is not an ntt transceiver message", "tx_hash", cl.TxHash.Hex(), "error", err)
			continue
		}
		mm, err := ParseManagerMessage(tm.ManagerPayload)
		if err != nil {
			p.logger.Warn("skipping manager message", "tx_hash", cl.TxHash.Hex(), "error", err)
			continue
		}
		transfer, err := ParseNativeTokenTransfer(mm.Payload)
		if err != nil {
			p.logger.Warn("skipping native token transfer", "tx_hash", cl.TxHash.Hex(), "error", err)
			continue
		}

		digest := ManagerMessageDigest(chainID, tm.ManagerPayload)
		p.logger.Debug("correlated transfer",
			"tx_hash", l.TxHash.Hex(),
			"ntt_transfer_key", transferKey,
			"digest", digest,
		)
		facts = append(facts, fact{digest: digest, fields: model.LifeCycle{
			SrcChain:            chainID,
			DestChain:           ev.RecipientChain,
			SourceToken:         hexNoPrefix(transfer.SourceToken[:]),
			TokenAmount:         ev.Amount.String(),
			TransferSentTxHash:  hexNoPrefix(l.TxHash.Bytes()),
			TransferBlockHeight: l.BlockNumber,
			TransferTime:        &ts,
			VaaID:               model.MessageID(chainID, msg.Emitter, msg.Sequence),
			NttTransferKey:      transferKey,
			IsRelay:             isRelay,
		}})
	}
	return facts, nil
}
