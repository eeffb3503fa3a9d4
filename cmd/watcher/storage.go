package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/config"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store/postgres"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store/sqlite"
)

// scopedStore is what both backends provide for one watcher scope.
type scopedStore interface {
	store.MessageStore
	store.MessageReader
	store.CheckpointAdmin
	store.SignedVaaRepository
}

var (
	_ scopedStore = (*postgres.MessageRepo)(nil)
	_ scopedStore = (*sqlite.Store)(nil)
)

// storage is the opened backend. Exactly one of pg and gdb is set.
type storage struct {
	backend string
	pg      *postgres.DB
	gdb     *gorm.DB
	sqlDB   *sql.DB
}

func openStorage(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (*storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := postgres.New(postgres.Config{
			URL:                cfg.DB.URL,
			MaxOpenConns:       cfg.DB.MaxOpenConns,
			MaxIdleConns:       cfg.DB.MaxIdleConns,
			ConnMaxLifetime:    cfg.DB.ConnMaxLifetime,
			StatementTimeoutMS: cfg.DB.StatementTimeoutMS,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if migrate {
			if err := db.RunMigrations(ctx, postgres.MigrationSource(cfg.DB.MigrationsDir)); err != nil {
				db.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		logger.Info("connected to database", "backend", config.BackendPostgres)
		return &storage{backend: config.BackendPostgres, pg: db, sqlDB: db.DB}, nil

	case config.BackendSQLite:
		// Open migrates the schema unconditionally.
		gdb, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("opened local database", "backend", config.BackendSQLite, "path", cfg.Storage.SQLitePath)
		return &storage{backend: config.BackendSQLite, gdb: gdb, sqlDB: sqlDB}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func (s *storage) scope(sc model.Scope) scopedStore {
	if s.pg != nil {
		return postgres.NewMessageRepo(s.pg, sc)
	}
	return sqlite.New(s.gdb, sc)
}

func (s *storage) stats() dbStatsProvider {
	if s.sqlDB == nil {
		return nil
	}
	return s.sqlDB
}

func (s *storage) Close() error {
	if s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
