package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks

// ErrPendingKeyNotFound is returned when an outbox/inbox item has no linked digest.
var ErrPendingKeyNotFound = errors.New("pending key not found")

// TxBeginner abstracts the ability to begin a database transaction.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// MessageStore persists observed messages and the per-chain checkpoint for
// one watcher scope.
type MessageStore interface {
	// GetCheckpoint returns nil when the chain has never been stored.
	GetCheckpoint(ctx context.Context, chain vaa.ChainID) (*model.Checkpoint, error)
	// StoreRange writes every message idempotently and, when advance is set,
	// moves the checkpoint to the highest block in vaas. Never moves backwards.
	StoreRange(ctx context.Context, chain vaa.ChainID, vaas model.VaasByBlock, advance bool) error
}

// MessageReader backs the read API.
type MessageReader interface {
	ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error)
	CountMessages(ctx context.Context) ([]model.MessageCounts, error)
	ListMissingVaas(ctx context.Context, chain vaa.ChainID, olderThan time.Time, limit int) ([]model.ObservedMessage, error)
}

// CheckpointAdmin rewrites checkpoints for administrative backfills.
type CheckpointAdmin interface {
	SetCheckpoint(ctx context.Context, chain vaa.ChainID, key model.BlockKey) error
	DeleteCheckpoint(ctx context.Context, chain vaa.ChainID) error
}

// SignedVaaRepository records which observed messages have a signed VAA.
type SignedVaaRepository interface {
	// MarkSigned records the message ids and returns how many stored
	// messages were flipped to signed.
	MarkSigned(ctx context.Context, messageIDs []string) (int64, error)
}

// LifeCycleRepository provides row-locked access to lifecycle records.
type LifeCycleRepository interface {
	Get(ctx context.Context, digest string) (*model.LifeCycle, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, digest string) (*model.LifeCycle, error)
	// InsertIfAbsentTx reports false when a row with the same digest already exists.
	InsertIfAbsentTx(ctx context.Context, tx *sql.Tx, lc *model.LifeCycle) (bool, error)
	UpdateTx(ctx context.Context, tx *sql.Tx, lc *model.LifeCycle) error
}

// PendingKeyRepository maps intermediate outbox/inbox item ids to lifecycle digests.
type PendingKeyRepository interface {
	LinkTx(ctx context.Context, tx *sql.Tx, box model.PendingBox, itemID, digest string) error
	// ResolveTx returns ErrPendingKeyNotFound when no link exists.
	ResolveTx(ctx context.Context, tx *sql.Tx, box model.PendingBox, itemID string) (string, error)
	DeleteTx(ctx context.Context, tx *sql.Tx, box model.PendingBox, itemID string) error
}
