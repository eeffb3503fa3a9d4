package signedvaa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	spyv1 "github.com/certusone/wormhole/node/pkg/proto/spy/v1"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/retry"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store"
)

const (
	minResubscribeDelay = time.Second
	maxResubscribeDelay = 30 * time.Second
)

// Stream yields signed VAAs from a spy subscription.
type Stream interface {
	Recv() (*spyv1.SubscribeSignedVAAResponse, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context) (Stream, error)
}

// SpyClient subscribes to the guardian spy's signed VAA feed.
type SpyClient struct {
	conn   *grpc.ClientConn
	client spyv1.SpyRPCServiceClient
}

func Dial(endpoint string) (*SpyClient, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to spy %s: %w", endpoint, err)
	}
	return &SpyClient{conn: conn, client: spyv1.NewSpyRPCServiceClient(conn)}, nil
}

func (c *SpyClient) Subscribe(ctx context.Context) (Stream, error) {
	stream, err := c.client.SubscribeSignedVAA(ctx, &spyv1.SubscribeSignedVAARequest{})
	if err != nil {
		return nil, fmt.Errorf("subscribe signed vaas: %w", err)
	}
	return stream, nil
}

func (c *SpyClient) Close() error {
	return c.conn.Close()
}

// Consumer marks observed messages as signed as their VAAs arrive.
type Consumer struct {
	sub    Subscriber
	repo   store.SignedVaaRepository
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

func NewConsumer(sub Subscriber, repo store.SignedVaaRepository, logger *slog.Logger) *Consumer {
	return &Consumer{
		sub:    sub,
		repo:   repo,
		sleep:  sleepCtx,
		logger: logger.With("component", "signed_vaa"),
	}
}

// Run consumes the feed until ctx is done, resubscribing after stream
// failures with a doubling delay.
func (c *Consumer) Run(ctx context.Context) error {
	delay := minResubscribeDelay
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			delay = minResubscribeDelay
			continue
		}
		c.logger.Warn("signed vaa stream failed, resubscribing",
			"error", err,
			"class", retry.Classify(err).Class,
			"retry_in", delay,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
		delay = min(delay*2, maxResubscribeDelay)
	}
}

// consume reads one subscription until it ends. A clean EOF returns nil.
func (c *Consumer) consume(ctx context.Context) error {
	stream, err := c.sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("subscribed to signed vaas")
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive signed vaa: %w", err)
		}
		if err := c.Handle(ctx, resp.GetVaaBytes()); err != nil {
			c.logger.Warn("failed to record signed vaa", "error", err)
		}
	}
}

// Handle parses one signed VAA and marks its message as signed.
func (c *Consumer) Handle(ctx context.Context, raw []byte) error {
	v, err := vaa.Unmarshal(raw)
	if err != nil {
		metrics.SignedVaaErrors.Inc()
		return fmt.Errorf("parse vaa: %w", err)
	}
	id := model.MessageID(v.EmitterChain, v.EmitterAddress, v.Sequence)
	metrics.SignedVaasReceived.WithLabelValues(model.ChainLabel(v.EmitterChain)).Inc()

	updated, err := c.repo.MarkSigned(ctx, []string{id})
	if err != nil {
		metrics.SignedVaaErrors.Inc()
		return fmt.Errorf("mark %s signed: %w", id, err)
	}
	c.logger.Debug("signed vaa recorded", "message_id", id, "updated", updated)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
