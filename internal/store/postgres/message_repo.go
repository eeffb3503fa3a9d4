package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

const backendName = "postgres"

// MessageRepo stores observed messages and checkpoints for one watcher scope.
type MessageRepo struct {
	db    *DB
	scope model.Scope
}

func NewMessageRepo(db *DB, scope model.Scope) *MessageRepo {
	return &MessageRepo{db: db, scope: scope}
}

func (r *MessageRepo) GetCheckpoint(ctx context.Context, chain vaa.ChainID) (*model.Checkpoint, error) {
	var (
		key       string
		updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT last_block_key, updated_at
		FROM checkpoints
		WHERE scope = $1 AND chain = $2
	`, string(r.scope), int(chain)).Scan(&key, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}

	blockKey, err := model.ParseBlockKey(key)
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return &model.Checkpoint{
		Scope:        r.scope,
		Chain:        chain,
		LastBlockKey: blockKey,
		UpdatedAt:    updatedAt,
	}, nil
}

func (r *MessageRepo) StoreRange(ctx context.Context, chain vaa.ChainID, vaas model.VaasByBlock, advance bool) error {
	filtered := vaas.WithoutEmpty()
	last, ok := filtered.LastKey()
	if !ok {
		return nil
	}

	var inserted int64
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		var messageIDs []string
		for _, bk := range filtered.SortedKeys() {
			if err := r.insertBlockTx(ctx, tx, chain, bk); err != nil {
				return err
			}
			for _, key := range filtered[bk] {
				n, err := insertMessageTx(ctx, tx, chain, bk, key)
				if err != nil {
					return err
				}
				inserted += n
				messageIDs = append(messageIDs, key.MessageID())
			}
		}

		if len(messageIDs) > 0 {
			if _, err := tx.ExecContext(ctx, `
				UPDATE observed_messages m SET has_signed_vaa = true
				FROM signed_vaas s
				WHERE m.message_id = s.message_id
				  AND m.message_id = ANY($1)
				  AND NOT m.has_signed_vaa
			`, pq.Array(messageIDs)); err != nil {
				return fmt.Errorf("apply signed vaas: %w", err)
			}
		}

		if advance {
			return r.advanceCheckpointTx(ctx, tx, chain, last)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store range: %w", err)
	}

	label := model.ChainLabel(chain)
	metrics.StoreRangesTotal.WithLabelValues(backendName, label, r.scope.String()).Inc()
	metrics.StoreMessagesInserted.WithLabelValues(backendName, label).Add(float64(inserted))
	return nil
}

func (r *MessageRepo) insertBlockTx(ctx context.Context, tx *sql.Tx, chain vaa.ChainID, bk model.BlockKey) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO observed_blocks (scope, chain, block_number, block_timestamp, row_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (scope, chain, block_number) DO NOTHING
	`, string(r.scope), int(chain), int64(bk.Number), bk.Timestamp, model.BlockRowKey(chain, bk.Number))
	if err != nil {
		return fmt.Errorf("insert block %d: %w", bk.Number, err)
	}
	return nil
}

func insertMessageTx(ctx context.Context, tx *sql.Tx, chain vaa.ChainID, bk model.BlockKey, key model.VaaKey) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO observed_messages (
			row_key, message_id, emitter_chain, emitter_address, sequence,
			chain, block_number, block_row_key, tx_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT DO NOTHING
	`,
		model.MessageRowKey(key.EmitterChain, key.EmitterAddress, key.Sequence),
		key.MessageID(),
		int(key.EmitterChain),
		key.EmitterAddress.String(),
		strconv.FormatUint(key.Sequence, 10),
		int(chain),
		int64(bk.Number),
		model.BlockRowKey(chain, bk.Number),
		key.TxHash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert message %s: %w", key.MessageID(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert message %s: %w", key.MessageID(), err)
	}
	return n, nil
}

// advanceCheckpointTx only moves the checkpoint forward.
func (r *MessageRepo) advanceCheckpointTx(ctx context.Context, tx *sql.Tx, chain vaa.ChainID, key model.BlockKey) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO checkpoints (scope, chain, last_block_number, last_block_key, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (scope, chain) DO UPDATE SET
			last_block_number = EXCLUDED.last_block_number,
			last_block_key = EXCLUDED.last_block_key,
			updated_at = now()
		WHERE checkpoints.last_block_number < EXCLUDED.last_block_number
	`, string(r.scope), int(chain), int64(key.Number), key.String())
	if err != nil {
		return fmt.Errorf("advance checkpoint: %w", err)
	}
	return nil
}

// SetCheckpoint overwrites the checkpoint unconditionally, including backwards.
func (r *MessageRepo) SetCheckpoint(ctx context.Context, chain vaa.ChainID, key model.BlockKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkpoints (scope, chain, last_block_number, last_block_key, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (scope, chain) DO UPDATE SET
			last_block_number = EXCLUDED.last_block_number,
			last_block_key = EXCLUDED.last_block_key,
			updated_at = now()
	`, string(r.scope), int(chain), int64(key.Number), key.String())
	if err != nil {
		return fmt.Errorf("set checkpoint: %w", err)
	}
	return nil
}

func (r *MessageRepo) DeleteCheckpoint(ctx context.Context, chain vaa.ChainID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM checkpoints WHERE scope = $1 AND chain = $2
	`, string(r.scope), int(chain))
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chain, last_block_key, updated_at
		FROM checkpoints
		WHERE scope = $1
		ORDER BY chain
	`, string(r.scope))
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []model.Checkpoint
	for rows.Next() {
		var (
			chain int
			key   string
			cp    model.Checkpoint
		)
		if err := rows.Scan(&chain, &key, &cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		bk, err := model.ParseBlockKey(key)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.Scope = r.scope
		cp.Chain = vaa.ChainID(chain)
		cp.LastBlockKey = bk
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (r *MessageRepo) CountMessages(ctx context.Context) ([]model.MessageCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.chain,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE NOT m.has_signed_vaa) AS missing,
		       COALESCE(b.last_row_key, '')
		FROM observed_messages m
		LEFT JOIN (
			SELECT chain, MAX(row_key) AS last_row_key
			FROM observed_blocks
			WHERE scope = $1
			GROUP BY chain
		) b ON b.chain = m.chain
		GROUP BY m.chain, b.last_row_key
		ORDER BY m.chain
	`, string(r.scope))
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	defer rows.Close()

	var out []model.MessageCounts
	for rows.Next() {
		var (
			chain int
			c     model.MessageCounts
		)
		if err := rows.Scan(&chain, &c.NumTotalMessages, &c.NumMessagesWithoutVaas, &c.LastRowKey); err != nil {
			return nil, fmt.Errorf("scan message counts: %w", err)
		}
		c.Chain = uint16(chain)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *MessageRepo) ListMissingVaas(ctx context.Context, chain vaa.ChainID, olderThan time.Time, limit int) ([]model.ObservedMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT row_key, chain, block_number, tx_hash, message_id, has_signed_vaa, observed_at
		FROM observed_messages
		WHERE chain = $1 AND NOT has_signed_vaa AND observed_at < $2
		ORDER BY observed_at
		LIMIT $3
	`, int(chain), olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list missing vaas: %w", err)
	}
	defer rows.Close()

	var out []model.ObservedMessage
	for rows.Next() {
		var (
			m      model.ObservedMessage
			chainN int
			block  int64
		)
		if err := rows.Scan(&m.RowKey, &chainN, &block, &m.TxHash, &m.MessageID, &m.HasSignedVaa, &m.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan missing vaa: %w", err)
		}
		m.Chain = uint16(chainN)
		m.BlockNumber = uint64(block)
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkSigned records the ids in signed_vaas so messages stored later pick
// them up, and flips already stored messages.
func (r *MessageRepo) MarkSigned(ctx context.Context, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	var updated int64
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO signed_vaas (message_id)
			SELECT unnest($1::text[])
			ON CONFLICT (message_id) DO NOTHING
		`, pq.Array(messageIDs)); err != nil {
			return fmt.Errorf("insert signed vaas: %w", err)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE observed_messages SET has_signed_vaa = true
			WHERE message_id = ANY($1) AND NOT has_signed_vaa
		`, pq.Array(messageIDs))
		if err != nil {
			return fmt.Errorf("mark messages signed: %w", err)
		}
		updated, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("mark signed: %w", err)
	}
	return updated, nil
}
