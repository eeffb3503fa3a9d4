package redis

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

const defaultMaxLen = 100_000

// XAdder is the subset of the redis client used for publishing.
type XAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// PublishingStore wraps a MessageStore and appends every message of a
// successfully stored range to a Redis stream. Publishing is best effort:
// failures are logged and counted, never returned.
type PublishingStore struct {
	next   store.MessageStore
	client XAdder
	stream string
	maxLen int64
	logger *slog.Logger
}

func NewPublishingStore(next store.MessageStore, client XAdder, stream string, logger *slog.Logger) *PublishingStore {
	return &PublishingStore{
		next:   next,
		client: client,
		stream: stream,
		maxLen: defaultMaxLen,
		logger: logger.With("component", "redis_publisher", "stream", stream),
	}
}

func (p *PublishingStore) GetCheckpoint(ctx context.Context, chain vaa.ChainID) (*model.Checkpoint, error) {
	return p.next.GetCheckpoint(ctx, chain)
}

func (p *PublishingStore) StoreRange(ctx context.Context, chain vaa.ChainID, vaas model.VaasByBlock, advance bool) error {
	if err := p.next.StoreRange(ctx, chain, vaas, advance); err != nil {
		return err
	}

	label := model.ChainLabel(chain)
	for _, bk := range vaas.SortedKeys() {
		for _, key := range vaas[bk] {
			err := p.client.XAdd(ctx, &redis.XAddArgs{
				Stream: p.stream,
				MaxLen: p.maxLen,
				Approx: true,
				Values: map[string]any{
					"chain":      strconv.FormatUint(uint64(chain), 10),
					"block":      bk.String(),
					"vaa_key":    key.String(),
					"message_id": key.MessageID(),
				},
			}).Err()
			if err != nil {
				metrics.StorePublishErrors.WithLabelValues(label).Inc()
				p.logger.Warn("publish observation failed",
					"chain", label,
					"message_id", key.MessageID(),
					"error", err,
				)
			}
		}
	}
	return nil
}
