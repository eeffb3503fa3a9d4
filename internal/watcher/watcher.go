package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/chain"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/retry"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/tracing"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxBatchSize = 100
	DefaultBackoffBase  = 500 * time.Millisecond
	DefaultPollInterval = 500 * time.Millisecond
)

type Config struct {
	Chain vaa.ChainID
	Scope model.Scope
	Mode  model.Mode

	// InitialBlock is used when no checkpoint exists. Nil means adopt the
	// finalized height on the first cycle.
	InitialBlock *uint64

	MaxBatchSize uint64
	BackoffBase  time.Duration
	PollInterval time.Duration

	// HeartbeatInterval splits long sleeps so liveness is still reported.
	// Zero disables splitting.
	HeartbeatInterval time.Duration
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Option func(*Watcher)

// WithHeartbeat sets the liveness callback invoked once per cycle.
func WithHeartbeat(fn func()) Option {
	return func(w *Watcher) { w.heartbeat = fn }
}

func WithSleeper(s Sleeper) Option {
	return func(w *Watcher) { w.sleep = s }
}

func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.nowFn = now }
}

// Watcher drives one chain: read the finalized height, fetch a bounded range,
// store it, sleep. Errors at any step back off exponentially and never stop
// the loop.
type Watcher struct {
	cfg       Config
	collab    chain.Collaborator
	store     store.MessageStore
	logger    *slog.Logger
	heartbeat func()
	sleep     Sleeper
	nowFn     func() time.Time

	chainLabel string
	scopeLabel string
}

type cursor struct {
	resumed   bool
	hasFrom   bool
	fromBlock uint64
}

type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func New(cfg Config, collab chain.Collaborator, st store.MessageStore, logger *slog.Logger, opts ...Option) *Watcher {
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Scope == "" {
		cfg.Scope = model.ScopeMessages
	}
	chainLabel := model.ChainLabel(cfg.Chain)
	w := &Watcher{
		cfg:        cfg,
		collab:     collab,
		store:      st,
		heartbeat:  func() {},
		sleep:      sleepCtx,
		nowFn:      time.Now,
		chainLabel: chainLabel,
		scopeLabel: cfg.Scope.String(),
		logger: logger.With(
			"component", "watcher",
			"chain", cfg.Chain.String(),
			"scope", cfg.Scope.String(),
		),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run loops until ctx is cancelled and returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher started",
		"mode", w.cfg.Mode,
		"max_batch_size", w.cfg.MaxBatchSize,
		"poll_interval", w.cfg.PollInterval,
	)

	var (
		cur     cursor
		retries int
	)
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("watcher stopping")
			return err
		}

		start := time.Now()
		err := w.cycle(ctx, &cur)
		metrics.WatcherCyclesTotal.WithLabelValues(w.chainLabel, w.scopeLabel).Inc()
		metrics.WatcherCycleLatency.WithLabelValues(w.chainLabel, w.scopeLabel).Observe(time.Since(start).Seconds())

		delay := w.cfg.PollInterval
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("watcher stopping")
				return ctx.Err()
			}
			retries++
			delay = Backoff(w.cfg.BackoffBase, retries)
			w.recordError(err, retries, delay)
		} else {
			retries = 0
		}
		metrics.WatcherRetryCount.WithLabelValues(w.chainLabel, w.scopeLabel).Set(float64(retries))

		w.heartbeat()
		if err := w.sleepWithHeartbeat(ctx, delay); err != nil {
			w.logger.Info("watcher stopping")
			return err
		}
	}
}

func (w *Watcher) recordError(err error, retries int, delay time.Duration) {
	step := "unknown"
	var se *stepError
	if errors.As(err, &se) {
		step = se.step
	}
	decision := retry.Classify(err)
	metrics.WatcherErrorsTotal.WithLabelValues(w.chainLabel, w.scopeLabel, step, string(decision.Class)).Inc()
	w.logger.Warn("watcher cycle failed, backing off",
		"step", step,
		"class", decision.Class,
		"reason", decision.Reason,
		"retry", retries,
		"backoff", delay,
		"error", err,
	)
}

func (w *Watcher) cycle(ctx context.Context, cur *cursor) (err error) {
	ctx, span := tracing.Tracer("watcher").Start(ctx, "watcher.cycle",
		otelTrace.WithAttributes(
			attribute.String("chain", w.chainLabel),
			attribute.String("scope", w.scopeLabel),
		),
	)
	defer func() {
		tracing.Fail(span, err)
		span.End()
	}()

	if !cur.resumed {
		if err := w.resume(ctx, cur); err != nil {
			return &stepError{step: "checkpoint", err: err}
		}
	}

	finalized, err := w.collab.FinalizedHeight(ctx)
	if err != nil {
		return &stepError{step: "finalized_height", err: err}
	}
	metrics.WatcherFinalizedHeight.WithLabelValues(w.chainLabel, w.scopeLabel).Set(float64(finalized))
	span.SetAttributes(attribute.Int64("finalized", int64(finalized)))

	if !cur.hasFrom {
		cur.fromBlock = finalized
		cur.hasFrom = true
		w.logger.Info("no checkpoint or initial block, starting at finalized height", "block", finalized)
		return nil
	}
	if cur.fromBlock > finalized {
		w.logger.Debug("caught up", "next_block", cur.fromBlock, "finalized", finalized)
		return nil
	}

	from := cur.fromBlock
	to := clampRange(from, finalized, w.cfg.MaxBatchSize)
	span.SetAttributes(attribute.Int64("from", int64(from)), attribute.Int64("to", int64(to)))

	vaas, err := w.collab.MessagesInRange(ctx, from, to)
	if err != nil {
		return &stepError{step: "fetch_range", err: fmt.Errorf("blocks %d-%d: %w", from, to, err)}
	}
	if len(vaas) == 0 {
		// Anchor the checkpoint at the requested upper bound.
		vaas = model.VaasByBlock{model.NewBlockKey(to, w.nowFn()): nil}
	}

	if err := w.store.StoreRange(ctx, w.cfg.Chain, vaas, true); err != nil {
		return &stepError{step: "store", err: fmt.Errorf("blocks %d-%d: %w", from, to, err)}
	}

	count := vaas.MessageCount()
	metrics.WatcherBlocksScanned.WithLabelValues(w.chainLabel, w.scopeLabel).Add(float64(to - from + 1))
	metrics.WatcherMessagesObserved.WithLabelValues(w.chainLabel, w.scopeLabel).Add(float64(count))
	metrics.WatcherLastBlock.WithLabelValues(w.chainLabel, w.scopeLabel).Set(float64(to))
	w.logger.Info("stored range", "from", from, "to", to, "messages", count)

	cur.fromBlock = to + 1
	return nil
}

func (w *Watcher) resume(ctx context.Context, cur *cursor) error {
	cp, err := w.store.GetCheckpoint(ctx, w.cfg.Chain)
	if err != nil {
		return err
	}
	switch {
	case cp != nil:
		cur.fromBlock = cp.NextBlock()
		cur.hasFrom = true
		w.logger.Info("resuming from checkpoint", "checkpoint", cp.LastBlockKey.String(), "next_block", cur.fromBlock)
	case w.cfg.InitialBlock != nil:
		cur.fromBlock = *w.cfg.InitialBlock
		cur.hasFrom = true
		w.logger.Info("starting from initial block", "next_block", cur.fromBlock)
	}
	cur.resumed = true
	return nil
}

func (w *Watcher) sleepWithHeartbeat(ctx context.Context, d time.Duration) error {
	step := w.cfg.HeartbeatInterval
	if step <= 0 || d <= step {
		return w.sleep(ctx, d)
	}
	for d > 0 {
		chunk := min(step, d)
		if err := w.sleep(ctx, chunk); err != nil {
			return err
		}
		d -= chunk
		if d > 0 {
			w.heartbeat()
		}
	}
	return nil
}

// clampRange returns min(finalized, from+maxBatch-1).
func clampRange(from, finalized, maxBatch uint64) uint64 {
	if maxBatch-1 > math.MaxUint64-from {
		return finalized
	}
	return min(finalized, from+maxBatch-1)
}

// Backoff returns base*2^retry, saturating instead of overflowing.
func Backoff(base time.Duration, retry int) time.Duration {
	d := base
	for i := 0; i < retry; i++ {
		if d > math.MaxInt64/2 {
			return time.Duration(math.MaxInt64)
		}
		d *= 2
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
