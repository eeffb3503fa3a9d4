package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store"
)

type PendingKeyRepo struct {
	db *DB
}

func NewPendingKeyRepo(db *DB) *PendingKeyRepo {
	return &PendingKeyRepo{db: db}
}

// pendingTable returns the link table and its key column. Names are fixed
// strings, never caller input.
func pendingTable(box model.PendingBox) (table, column string, err error) {
	switch box {
	case model.PendingOutbox:
		return "outbox_item_to_lifecycle_digest", "outbox_item", nil
	case model.PendingInbox:
		return "inbox_item_to_lifecycle_digest", "inbox_item", nil
	default:
		return "", "", fmt.Errorf("unknown pending box %q", box)
	}
}

// LinkTx is idempotent; re-linking an item to a new digest overwrites it.
func (r *PendingKeyRepo) LinkTx(ctx context.Context, tx *sql.Tx, box model.PendingBox, itemID, digest string) error {
	table, column, err := pendingTable(box)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, digest) VALUES ($1, $2)
		ON CONFLICT (%s) DO UPDATE SET digest = EXCLUDED.digest
	`, table, column, column)
	if _, err := tx.ExecContext(ctx, query, itemID, digest); err != nil {
		return fmt.Errorf("link %s item: %w", box, err)
	}
	return nil
}

func (r *PendingKeyRepo) ResolveTx(ctx context.Context, tx *sql.Tx, box model.PendingBox, itemID string) (string, error) {
	table, column, err := pendingTable(box)
	if err != nil {
		return "", err
	}
	var digest string
	query := fmt.Sprintf(`SELECT digest FROM %s WHERE %s = $1`, table, column)
	err = tx.QueryRowContext(ctx, query, itemID).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("resolve %s item %s: %w", box, itemID, store.ErrPendingKeyNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s item: %w", box, err)
	}
	return digest, nil
}

func (r *PendingKeyRepo) DeleteTx(ctx context.Context, tx *sql.Tx, box model.PendingBox, itemID string) error {
	table, column, err := pendingTable(box)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, column)
	if _, err := tx.ExecContext(ctx, query, itemID); err != nil {
		return fmt.Errorf("delete %s item: %w", box, err)
	}
	return nil
}
