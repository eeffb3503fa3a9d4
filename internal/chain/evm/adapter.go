package evm

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
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/cache"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/chain"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/chain/rpcguard"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/circuitbreaker"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
)

const blockTimeCacheSize = 4096

// Finality selects the block tag used as the finalized height.
type Finality string

const (
	FinalityFinalized Finality = "finalized"
	FinalitySafe      Finality = "safe"
	FinalityLatest    Finality = "latest"
)

func (f Finality) blockNumber() *big.Int {
	switch f {
	case FinalitySafe:
		return big.NewInt(int64(rpc.SafeBlockNumber))
	case FinalityLatest:
		return nil
	default:
		return big.NewInt(int64(rpc.FinalizedBlockNumber))
	}
}

// Client is the subset of ethclient.Client the adapter needs.
type Client interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

type Config struct {
	Chain        vaa.ChainID
	CoreContract common.Address
	Finality     Finality
	RPS          float64
	Burst        int
}

// Adapter reads wormhole core messages from an EVM chain.
type Adapter struct {
	client     Client
	cfg        Config
	label      string
	guard      *rpcguard.Guard
	blockTimes *cache.LRU[uint64, time.Time]
	nowFn      func() time.Time
	logger     *slog.Logger
}

var _ chain.Collaborator = (*Adapter)(nil)

// Dial connects to rpcURL and returns an adapter over the resulting client.
func Dial(ctx context.Context, rpcURL string, cfg Config, logger *slog.Logger) (*Adapter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s rpc: %w", cfg.Chain, err)
	}
	return NewAdapter(client, cfg, logger), nil
}

func NewAdapter(client Client, cfg Config, logger *slog.Logger) *Adapter {
	label := model.ChainLabel(cfg.Chain)
	a := &Adapter{
		client:     client,
		cfg:        cfg,
		label:      label,
		blockTimes: cache.NewLRU[uint64, time.Time](blockTimeCacheSize, 0),
		nowFn:      time.Now,
		logger:     logger.With("component", "evm_adapter", "chain", cfg.Chain.String()),
	}
	a.guard = rpcguard.New(rpcguard.Config{
		Chain:  label,
		RPS:    cfg.RPS,
		Burst:  cfg.Burst,
		Benign: []error{ethereum.NotFound},
	}, func(from, to circuitbreaker.State) {
		a.logger.Warn("rpc circuit state changed", "from", from.String(), "to", to.String())
	})
	return a
}

func (a *Adapter) Chain() vaa.ChainID {
	return a.cfg.Chain
}

func (a *Adapter) FinalizedHeight(ctx context.Context) (uint64, error) {
	var header *types.Header
	err := a.call(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
		h, err := a.client.HeaderByNumber(ctx, a.cfg.Finality.blockNumber())
		header = h
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get %s header: %w", a.finality(), err)
	}
	if header == nil || header.Number == nil {
		return 0, fmt.Errorf("get %s header: empty response", a.finality())
	}
	a.blockTimes.Put(header.Number.Uint64(), time.Unix(int64(header.Time), 0).UTC())
	return header.Number.Uint64(), nil
}

// MessagesInRange returns the core contract messages in [from, to]. The
// result always holds an entry for to, so an empty range still advances the
// checkpoint.
func (a *Adapter) MessagesInRange(ctx context.Context, from, to uint64) (model.VaasByBlock, error) {
	if from > to {
		return nil, fmt.Errorf("invalid block range [%d, %d]", from, to)
	}
	logs, err := a.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{a.cfg.CoreContract},
		Topics:    [][]common.Hash{{LogMessagePublishedTopic}},
	})
	if err != nil {
		return nil, err
	}

	result := make(model.VaasByBlock)
	keys := make(map[uint64]model.BlockKey)
	for _, l := range logs {
		if l.Removed {
			continue
		}
		msg, err := DecodeLogMessagePublished(l)
		if err != nil {
			a.logger.Warn("skipping undecodable core log", "tx_hash", l.TxHash.Hex(), "error", err)
			continue
		}
		key, ok := keys[l.BlockNumber]
		if !ok {
			ts, err := a.BlockTime(ctx, l.BlockNumber)
			if err != nil {
				return nil, err
			}
			key = model.NewBlockKey(l.BlockNumber, ts)
			keys[l.BlockNumber] = key
		}
		result[key] = append(result[key], model.VaaKey{
			TxHash:         l.TxHash.Hex(),
			EmitterChain:   a.cfg.Chain,
			EmitterAddress: msg.Emitter,
			Sequence:       msg.Sequence,
		})
	}

	if _, ok := keys[to]; !ok {
		key, err := a.anchorKey(ctx, to)
		if err != nil {
			return nil, err
		}
		result[key] = []model.VaaKey{}
	}
	return result, nil
}

// FilterLogs runs eth_getLogs through the rpc guard.
func (a *Adapter) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := a.call(ctx, "eth_getLogs", func(ctx context.Context) error {
		l, err := a.client.FilterLogs(ctx, q)
		logs = l
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get logs [%v, %v]: %w", q.FromBlock, q.ToBlock, err)
	}
	return logs, nil
}

// BlockTime returns the block's timestamp, cached per block number.
func (a *Adapter) BlockTime(ctx context.Context, block uint64) (time.Time, error) {
	return a.blockTimes.GetOrLoad(block, func() (time.Time, error) {
		var header *types.Header
		err := a.call(ctx, "eth_getBlockByNumber", func(ctx context.Context) error {
			h, err := a.client.HeaderByNumber(ctx, new(big.Int).SetUint64(block))
			header = h
			return err
		})
		if err != nil {
			return time.Time{}, fmt.Errorf("get header %d: %w", block, err)
		}
		if header == nil {
			return time.Time{}, fmt.Errorf("get header %d: %w", block, ethereum.NotFound)
		}
		return time.Unix(int64(header.Time), 0).UTC(), nil
	})
}

// anchorKey builds the key for the range's upper bound. A block the node no
// longer serves is anchored at observation time rather than retried forever.
func (a *Adapter) anchorKey(ctx context.Context, block uint64) (model.BlockKey, error) {
	ts, err := a.BlockTime(ctx, block)
	if errors.Is(err, ethereum.NotFound) {
		a.logger.Warn("anchor block not found, using observation time", "block", block)
		return model.NewBlockKey(block, a.nowFn()), nil
	}
	if err != nil {
		return model.BlockKey{}, err
	}
	return model.NewBlockKey(block, ts), nil
}

func (a *Adapter) call(ctx context.Context, method string, fn func(context.Context) error) error {
	return a.guard.Call(ctx, method, fn)
}

func (a *Adapter) finality() Finality {
	if a.cfg.Finality == "" {
		return FinalityFinalized
	}
	return a.cfg.Finality
}
