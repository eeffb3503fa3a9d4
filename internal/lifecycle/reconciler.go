package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const (
	outcomeInserted = "inserted"
	outcomeUpdated  = "updated"
	outcomeError    = "error"
)

// Reconciler merges partial LifeCycle facts from independent producers into a
// single record per digest. Each call runs in its own transaction and holds a
// row lock on the record while merging.
type Reconciler struct {
	db         store.TxBeginner
	lifecycles store.LifeCycleRepository
	pending    store.PendingKeyRepository
	logger     *slog.Logger
}

func NewReconciler(
	db store.TxBeginner,
	lifecycles store.LifeCycleRepository,
	pending store.PendingKeyRepository,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		db:         db,
		lifecycles: lifecycles,
		pending:    pending,
		logger:     logger.With("component", "lifecycle"),
	}
}

// Upsert merges the fields kind is allowed to write into the record keyed by
// digest, creating it if absent. It returns the merged record.
func (r *Reconciler) Upsert(ctx context.Context, digest string, fields model.LifeCycle, kind model.EventKind) (*model.LifeCycle, error) {
	if digest == "" {
		return nil, fmt.Errorf("upsert %s: empty digest", kind)
	}

	ctx, span := tracing.Tracer("lifecycle").Start(ctx, "lifecycle.upsert",
		otelTrace.WithAttributes(
			attribute.String("digest", digest),
			attribute.String("event", kind.String()),
		),
	)
	defer span.End()

	start := time.Now()
	var (
		merged  *model.LifeCycle
		outcome string
	)
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		merged, outcome, err = r.upsertTx(ctx, tx, digest, fields, kind)
		return err
	})
	r.observe(kind, outcome, start, err)
	if err != nil {
		tracing.Fail(span, err)
		return nil, fmt.Errorf("upsert %s %s: %w", kind, digest, err)
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	r.logger.Debug("life cycle upserted", "digest", digest, "event", kind, "outcome", outcome)
	return merged, nil
}

// UpsertPending resolves a staged item to its digest and merges fields into
// that record in the same transaction. When consume is set the link is
// deleted once merged.
func (r *Reconciler) UpsertPending(
	ctx context.Context,
	box model.PendingBox,
	itemID string,
	fields model.LifeCycle,
	kind model.EventKind,
	consume bool,
) (*model.LifeCycle, error) {
	ctx, span := tracing.Tracer("lifecycle").Start(ctx, "lifecycle.upsert_pending",
		otelTrace.WithAttributes(
			attribute.String("box", string(box)),
			attribute.String("item", itemID),
			attribute.String("event", kind.String()),
		),
	)
	defer span.End()

	start := time.Now()
	var (
		merged  *model.LifeCycle
		outcome string
	)
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		digest, err := r.pending.ResolveTx(ctx, tx, box, itemID)
		if err != nil {
			return err
		}
		merged, outcome, err = r.upsertTx(ctx, tx, digest, fields, kind)
		if err != nil {
			return err
		}
		if consume {
			return r.pending.DeleteTx(ctx, tx, box, itemID)
		}
		return nil
	})
	r.observe(kind, outcome, start, err)
	if err != nil {
		tracing.Fail(span, err)
		return nil, fmt.Errorf("upsert pending %s %s/%s: %w", kind, box, itemID, err)
	}
	return merged, nil
}

// LinkPendingKey records that a staged item belongs to digest.
func (r *Reconciler) LinkPendingKey(ctx context.Context, box model.PendingBox, itemID, digest string) error {
	if itemID == "" || digest == "" {
		return fmt.Errorf("link %s: item and digest are required", box)
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return r.pending.LinkTx(ctx, tx, box, itemID, digest)
	})
}

// ResolvePendingKey returns the digest linked to a staged item, or
// store.ErrPendingKeyNotFound.
func (r *Reconciler) ResolvePendingKey(ctx context.Context, box model.PendingBox, itemID string) (string, error) {
	var digest string
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		digest, err = r.pending.ResolveTx(ctx, tx, box, itemID)
		return err
	})
	return digest, err
}

func (r *Reconciler) DeletePendingKey(ctx context.Context, box model.PendingBox, itemID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return r.pending.DeleteTx(ctx, tx, box, itemID)
	})
}

func (r *Reconciler) upsertTx(
	ctx context.Context,
	tx *sql.Tx,
	digest string,
	fields model.LifeCycle,
	kind model.EventKind,
) (*model.LifeCycle, string, error) {
	if fields.Digest != "" && fields.Digest != digest {
		return nil, outcomeError, fmt.Errorf("%w: %s != %s", ErrDigestMismatch, fields.Digest, digest)
	}

	existing, err := r.lifecycles.GetForUpdateTx(ctx, tx, digest)
	if err != nil {
		return nil, outcomeError, fmt.Errorf("lock life cycle: %w", err)
	}

	if existing == nil {
		created, err := Merge(model.LifeCycle{Digest: digest}, fields, kind)
		if err != nil {
			return nil, outcomeError, err
		}
		inserted, err := r.lifecycles.InsertIfAbsentTx(ctx, tx, &created)
		if err != nil {
			return nil, outcomeError, fmt.Errorf("insert life cycle: %w", err)
		}
		if inserted {
			return &created, outcomeInserted, nil
		}
		// A concurrent producer created the row first; merge into theirs.
		existing, err = r.lifecycles.GetForUpdateTx(ctx, tx, digest)
		if err != nil {
			return nil, outcomeError, fmt.Errorf("relock life cycle: %w", err)
		}
		if existing == nil {
			return nil, outcomeError, fmt.Errorf("life cycle %s missing after insert conflict", digest)
		}
	}

	merged, err := Merge(*existing, fields, kind)
	if err != nil {
		return nil, outcomeError, err
	}
	if err := r.lifecycles.UpdateTx(ctx, tx, &merged); err != nil {
		return nil, outcomeError, fmt.Errorf("update life cycle: %w", err)
	}
	return &merged, outcomeUpdated, nil
}

func (r *Reconciler) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Reconciler) observe(kind model.EventKind, outcome string, start time.Time, err error) {
	if err != nil || outcome == "" {
		outcome = outcomeError
	}
	if errors.Is(err, store.ErrPendingKeyNotFound) {
		outcome = "unresolved"
	}
	metrics.LifecycleUpsertsTotal.WithLabelValues(kind.String(), outcome).Inc()
	metrics.LifecycleUpsertLatency.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
}
