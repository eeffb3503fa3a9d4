// Package sqlite is a single-file message store for local runs. Lifecycle
// reconciliation needs row locks and stays on postgres.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const backendName = "sqlite"

type observedBlock struct {
	Scope          string `gorm:"primaryKey"`
	Chain          uint16 `gorm:"primaryKey;autoIncrement:false"`
	BlockNumber    uint64 `gorm:"primaryKey;autoIncrement:false"`
	BlockTimestamp string
	RowKey         string `gorm:"index"`
	CreatedAt      time.Time
}

func (observedBlock) TableName() string { return "observed_blocks" }

type observedMessage struct {
	RowKey         string `gorm:"primaryKey"`
	MessageID      string `gorm:"uniqueIndex"`
	EmitterChain   uint16
	EmitterAddress string
	Sequence       uint64
	Chain          uint16 `gorm:"index"`
	BlockNumber    uint64
	BlockRowKey    string
	TxHash         string
	HasSignedVaa   bool
	ObservedAt     time.Time
}

func (observedMessage) TableName() string { return "observed_messages" }

type signedVaa struct {
	MessageID  string `gorm:"primaryKey"`
	ReceivedAt time.Time
}

func (signedVaa) TableName() string { return "signed_vaas" }

type checkpointRow struct {
	Scope           string `gorm:"primaryKey"`
	Chain           uint16 `gorm:"primaryKey;autoIncrement:false"`
	LastBlockNumber uint64
	LastBlockKey    string
	UpdatedAt       time.Time
}

func (checkpointRow) TableName() string { return "checkpoints" }

// Open opens (creating if needed) the database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := gdb.AutoMigrate(&observedBlock{}, &observedMessage{}, &signedVaa{}, &checkpointRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return gdb, nil
}

// Store implements the message store interfaces for one watcher scope.
type Store struct {
	db    *gorm.DB
	scope model.Scope
	nowFn func() time.Time
}

func New(db *gorm.DB, scope model.Scope) *Store {
	return &Store{db: db, scope: scope, nowFn: time.Now}
}

func (s *Store) GetCheckpoint(ctx context.Context, chain vaa.ChainID) (*model.Checkpoint, error) {
	var row checkpointRow
	err := s.db.WithContext(ctx).
		Where("scope = ? AND chain = ?", string(s.scope), uint16(chain)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return s.toCheckpoint(row)
}

func (s *Store) toCheckpoint(row checkpointRow) (*model.Checkpoint, error) {
	key, err := model.ParseBlockKey(row.LastBlockKey)
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return &model.Checkpoint{
		Scope:        s.scope,
		Chain:        vaa.ChainID(row.Chain),
		LastBlockKey: key,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func (s *Store) StoreRange(ctx context.Context, chain vaa.ChainID, vaas model.VaasByBlock, advance bool) error {
	filtered := vaas.WithoutEmpty()
	last, ok := filtered.LastKey()
	if !ok {
		return nil
	}
	now := s.nowFn().UTC()

	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var messageIDs []string
		for _, bk := range filtered.SortedKeys() {
			block := observedBlock{
				Scope:          string(s.scope),
				Chain:          uint16(chain),
				BlockNumber:    bk.Number,
				BlockTimestamp: bk.Timestamp,
				RowKey:         model.BlockRowKey(chain, bk.Number),
				CreatedAt:      now,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&block).Error; err != nil {
				return fmt.Errorf("insert block %d: %w", bk.Number, err)
			}

			for _, key := range filtered[bk] {
				msg := observedMessage{
					RowKey:         model.MessageRowKey(key.EmitterChain, key.EmitterAddress, key.Sequence),
					MessageID:      key.MessageID(),
					EmitterChain:   uint16(key.EmitterChain),
					EmitterAddress: key.EmitterAddress.String(),
					Sequence:       key.Sequence,
					Chain:          uint16(chain),
					BlockNumber:    bk.Number,
					BlockRowKey:    model.BlockRowKey(chain, bk.Number),
					TxHash:         key.TxHash,
					ObservedAt:     now,
				}
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&msg)
				if res.Error != nil {
					return fmt.Errorf("insert message %s: %w", key.MessageID(), res.Error)
				}
				inserted += res.RowsAffected
				messageIDs = append(messageIDs, key.MessageID())
			}
		}

		if len(messageIDs) > 0 {
			err := tx.Model(&observedMessage{}).
				Where("message_id IN ? AND message_id IN (?)", messageIDs, tx.Model(&signedVaa{}).Select("message_id")).
				Update("has_signed_vaa", true).Error
			if err != nil {
				return fmt.Errorf("apply signed vaas: %w", err)
			}
		}

		if !advance {
			return nil
		}
		row := checkpointRow{
			Scope:           string(s.scope),
			Chain:           uint16(chain),
			LastBlockNumber: last.Number,
			LastBlockKey:    last.String(),
			UpdatedAt:       now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}, {Name: "chain"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_block_number", "last_block_key", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "checkpoints.last_block_number < excluded.last_block_number"},
			}},
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("advance checkpoint: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store range: %w", err)
	}

	label := model.ChainLabel(chain)
	metrics.StoreRangesTotal.WithLabelValues(backendName, label, s.scope.String()).Inc()
	metrics.StoreMessagesInserted.WithLabelValues(backendName, label).Add(float64(inserted))
	return nil
}

func (s *Store) SetCheckpoint(ctx context.Context, chain vaa.ChainID, key model.BlockKey) error {
	row := checkpointRow{
		Scope:           string(s.scope),
		Chain:           uint16(chain),
		LastBlockNumber: key.Number,
		LastBlockKey:    key.String(),
		UpdatedAt:       s.nowFn().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "chain"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_block_number", "last_block_key", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set checkpoint: %w", err)
	}
	return nil
}

func (s *Store) DeleteCheckpoint(ctx context.Context, chain vaa.ChainID) error {
	err := s.db.WithContext(ctx).
		Where("scope = ? AND chain = ?", string(s.scope), uint16(chain)).
		Delete(&checkpointRow{}).Error
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (s *Store) ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error) {
	var rows []checkpointRow
	if err := s.db.WithContext(ctx).Where("scope = ?", string(s.scope)).Order("chain").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	out := make([]model.Checkpoint, 0, len(rows))
	for _, row := range rows {
		cp, err := s.toCheckpoint(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *cp)
	}
	return out, nil
}

func (s *Store) CountMessages(ctx context.Context) ([]model.MessageCounts, error) {
	var rows []struct {
		Chain      uint16
		Total      int64
		Missing    int64
		LastRowKey string
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT m.chain AS chain,
		       COUNT(*) AS total,
		       SUM(CASE WHEN m.has_signed_vaa THEN 0 ELSE 1 END) AS missing,
		       COALESCE(b.last_row_key, '') AS last_row_key
		FROM observed_messages m
		LEFT JOIN (
			SELECT chain, MAX(row_key) AS last_row_key
			FROM observed_blocks
			WHERE scope = ?
			GROUP BY chain
		) b ON b.chain = m.chain
		GROUP BY m.chain, b.last_row_key
		ORDER BY m.chain
	`, string(s.scope)).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	out := make([]model.MessageCounts, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.MessageCounts{
			Chain:                  r.Chain,
			NumTotalMessages:       r.Total,
			NumMessagesWithoutVaas: r.Missing,
			LastRowKey:             r.LastRowKey,
		})
	}
	return out, nil
}

func (s *Store) ListMissingVaas(ctx context.Context, chain vaa.ChainID, olderThan time.Time, limit int) ([]model.ObservedMessage, error) {
	var rows []observedMessage
	err := s.db.WithContext(ctx).
		Where("chain = ? AND has_signed_vaa = ? AND observed_at < ?", uint16(chain), false, olderThan.UTC()).
		Order("observed_at").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list missing vaas: %w", err)
	}
	out := make([]model.ObservedMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.ObservedMessage{
			RowKey:       r.RowKey,
			Chain:        r.Chain,
			BlockNumber:  r.BlockNumber,
			TxHash:       r.TxHash,
			MessageID:    r.MessageID,
			HasSignedVaa: r.HasSignedVaa,
			ObservedAt:   r.ObservedAt,
		})
	}
	return out, nil
}

func (s *Store) MarkSigned(ctx context.Context, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	now := s.nowFn().UTC()
	var updated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := make([]signedVaa, 0, len(messageIDs))
		for _, id := range messageIDs {
			rows = append(rows, signedVaa{MessageID: id, ReceivedAt: now})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("insert signed vaas: %w", err)
		}
		res := tx.Model(&observedMessage{}).
			Where("message_id IN ? AND has_signed_vaa = ?", messageIDs, false).
			Update("has_signed_vaa", true)
		if res.Error != nil {
			return fmt.Errorf("mark messages signed: %w", res.Error)
		}
		updated = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark signed: %w", err)
	}
	return updated, nil
}
