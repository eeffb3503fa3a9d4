package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

const lifeCycleColumns = `digest, from_chain, to_chain, from_token, token_amount,
	transfer_sent_txhash, transfer_block_height, redeemed_txhash, redeemed_block_height,
	ntt_transfer_key, vaa_id, is_relay, transfer_time, redeem_time,
	inbound_transfer_queued_time, outbound_transfer_queued_time, outbound_transfer_releasable_time`

type LifeCycleRepo struct {
	db *DB
}

func NewLifeCycleRepo(db *DB) *LifeCycleRepo {
	return &LifeCycleRepo{db: db}
}

func (r *LifeCycleRepo) Get(ctx context.Context, digest string) (*model.LifeCycle, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+lifeCycleColumns+` FROM life_cycle WHERE digest = $1`, digest)
	lc, err := scanLifeCycle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get life cycle: %w", err)
	}
	return lc, nil
}

// GetForUpdateTx locks the row until tx ends. Returns nil, nil when absent.
func (r *LifeCycleRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, digest string) (*model.LifeCycle, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+lifeCycleColumns+` FROM life_cycle WHERE digest = $1 FOR UPDATE`, digest)
	lc, err := scanLifeCycle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get life cycle for update: %w", err)
	}
	return lc, nil
}

func (r *LifeCycleRepo) InsertIfAbsentTx(ctx context.Context, tx *sql.Tx, lc *model.LifeCycle) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO life_cycle (`+lifeCycleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (digest) DO NOTHING
	`, lifeCycleArgs(lc)...)
	if err != nil {
		return false, fmt.Errorf("insert life cycle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert life cycle: %w", err)
	}
	return n == 1, nil
}

func (r *LifeCycleRepo) UpdateTx(ctx context.Context, tx *sql.Tx, lc *model.LifeCycle) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE life_cycle SET
			from_chain = $2,
			to_chain = $3,
			from_token = $4,
			token_amount = $5,
			transfer_sent_txhash = $6,
			transfer_block_height = $7,
			redeemed_txhash = $8,
			redeemed_block_height = $9,
			ntt_transfer_key = $10,
			vaa_id = $11,
			is_relay = $12,
			transfer_time = $13,
			redeem_time = $14,
			inbound_transfer_queued_time = $15,
			outbound_transfer_queued_time = $16,
			outbound_transfer_releasable_time = $17,
			updated_at = now()
		WHERE digest = $1
	`, lifeCycleArgs(lc)...)
	if err != nil {
		return fmt.Errorf("update life cycle: %w", err)
	}
	return nil
}

// lifeCycleArgs maps zero values to NULL so unset fields stay distinguishable.
func lifeCycleArgs(lc *model.LifeCycle) []any {
	return []any{
		lc.Digest,
		nullChain(lc.SrcChain),
		nullChain(lc.DestChain),
		nullString(lc.SourceToken),
		nullString(lc.TokenAmount),
		nullString(lc.TransferSentTxHash),
		nullHeight(lc.TransferBlockHeight),
		nullString(lc.RedeemedTxHash),
		nullHeight(lc.RedeemedBlockHeight),
		nullString(lc.NttTransferKey),
		nullString(lc.VaaID),
		lc.IsRelay,
		nullTime(lc.TransferTime),
		nullTime(lc.RedeemTime),
		nullTime(lc.InboundTransferQueuedTime),
		nullTime(lc.OutboundTransferQueuedTime),
		nullTime(lc.OutboundTransferReleasableTime),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLifeCycle(row rowScanner) (*model.LifeCycle, error) {
	var (
		lc                                model.LifeCycle
		srcChain, destChain               sql.NullInt32
		sourceToken, tokenAmount          sql.NullString
		sentTx, redeemedTx, nttKey, vaaID sql.NullString
		sentHeight, redeemedHeight        sql.NullInt64
		transferTime, redeemTime          sql.NullTime
		inboundQueued, outboundQueued     sql.NullTime
		outboundReleasable                sql.NullTime
	)
	if err := row.Scan(
		&lc.Digest, &srcChain, &destChain, &sourceToken, &tokenAmount,
		&sentTx, &sentHeight, &redeemedTx, &redeemedHeight,
		&nttKey, &vaaID, &lc.IsRelay, &transferTime, &redeemTime,
		&inboundQueued, &outboundQueued, &outboundReleasable,
	); err != nil {
		return nil, err
	}

	lc.SrcChain = vaa.ChainID(srcChain.Int32)
	lc.DestChain = vaa.ChainID(destChain.Int32)
	lc.SourceToken = sourceToken.String
	lc.TokenAmount = tokenAmount.String
	lc.TransferSentTxHash = sentTx.String
	lc.TransferBlockHeight = uint64(sentHeight.Int64)
	lc.RedeemedTxHash = redeemedTx.String
	lc.RedeemedBlockHeight = uint64(redeemedHeight.Int64)
	lc.NttTransferKey = nttKey.String
	lc.VaaID = vaaID.String
	lc.TransferTime = timePtr(transferTime)
	lc.RedeemTime = timePtr(redeemTime)
	lc.InboundTransferQueuedTime = timePtr(inboundQueued)
	lc.OutboundTransferQueuedTime = timePtr(outboundQueued)
	lc.OutboundTransferReleasableTime = timePtr(outboundReleasable)
	return &lc, nil
}

func nullChain(c vaa.ChainID) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(c), Valid: c != vaa.ChainIDUnset}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullHeight(h uint64) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(h), Valid: h != 0}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
