package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
	"golang.org/x/sync/errgroup"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/admin"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/alert"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/chain/evm"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/config"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/lifecycle"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/ntt"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/signedvaa"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store/postgres"
	redispkg "github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store/redis"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/supervisor"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/tracing"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/watcher"
)

const (
	serviceName           = "wormhole-watcher"
	dbPoolStatsInterval   = 15 * time.Second
	dbPoolExhaustionRatio = 0.8
	serverShutdownTimeout = 5 * time.Second
)

var (
	newRedisClient = redispkg.Connect
	dialAdapter    = evm.Dial
)

// chainTarget is one configured chain with its connected collaborator.
type chainTarget struct {
	cfg     config.ChainConfig
	adapter *evm.Adapter
}

type dbStatsProvider interface {
	Stats() sql.DBStats
}

type dbPoolStatsGauges struct {
	open      prometheus.Gauge
	inUse     prometheus.Gauge
	waitCount prometheus.Gauge
}

func collectDBPoolStats(db dbStatsProvider, gauges dbPoolStatsGauges) (stats sql.DBStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("db pool stats collection panicked: %v", r)
		}
	}()
	if db == nil {
		return sql.DBStats{}, fmt.Errorf("db stats provider is nil")
	}

	stats = db.Stats()
	gauges.open.Set(float64(stats.OpenConnections))
	gauges.inUse.Set(float64(stats.InUse))
	gauges.waitCount.Set(float64(stats.WaitCount))
	return stats, nil
}

// poolExhausted reports whether a bounded pool is above the alert ratio.
func poolExhausted(stats sql.DBStats) bool {
	if stats.MaxOpenConnections <= 0 {
		return false
	}
	return float64(stats.InUse)/float64(stats.MaxOpenConnections) > dbPoolExhaustionRatio
}

func startDBPoolStatsPump(ctx context.Context, db dbStatsProvider, interval time.Duration, alerter alert.Alerter, logger *slog.Logger) {
	if db == nil || interval <= 0 {
		return
	}

	gauges := dbPoolStatsGauges{
		open:      metrics.DBPoolOpen,
		inUse:     metrics.DBPoolInUse,
		waitCount: metrics.DBPoolWaitCount,
	}
	ticker := time.NewTicker(interval)

	sample := func(initial bool) {
		stats, err := collectDBPoolStats(db, gauges)
		if err != nil {
			logger.Warn("failed to collect db pool stats", "initial", initial, "error", err)
			return
		}
		if alerter == nil || !poolExhausted(stats) {
			return
		}
		a := alert.Alert{
			Type:  alert.AlertTypeDBPool,
			Title: "DB connection pool near exhaustion",
			Message: fmt.Sprintf("Pool usage: %d/%d (%.0f%%)",
				stats.InUse, stats.MaxOpenConnections,
				100*float64(stats.InUse)/float64(stats.MaxOpenConnections)),
		}
		if err := alerter.Send(ctx, a); err != nil {
			logger.Warn("failed to send db pool alert", "error", err)
		}
	}

	go func() {
		defer ticker.Stop()

		sample(true)
		for {
			select {
			case <-ctx.Done():
				logger.Info("db pool stats sampler stopped", "cause", "context_done")
				return
			case <-ticker.C:
				sample(false)
			}
		}
	}()
}

func adapterConfig(ch config.ChainConfig) evm.Config {
	return evm.Config{
		Chain:        ch.ChainID,
		CoreContract: common.HexToAddress(ch.CoreContract),
		Finality:     evm.Finality(ch.Finality),
		RPS:          ch.RPS,
		Burst:        ch.Burst,
	}
}

func nttConfig(ch config.ChainConfig) ntt.Config {
	managers := make([]common.Address, 0, len(ch.NTTManagers))
	for _, m := range ch.NTTManagers {
		managers = append(managers, common.HexToAddress(m))
	}
	cfg := ntt.Config{
		Managers:     managers,
		CoreContract: common.HexToAddress(ch.CoreContract),
	}
	if ch.WormholeRelayer != "" {
		cfg.Relayer = common.HexToAddress(ch.WormholeRelayer)
	}
	return cfg
}

func buildTargets(ctx context.Context, chains []config.ChainConfig, logger *slog.Logger) ([]chainTarget, error) {
	targets := make([]chainTarget, 0, len(chains))
	for _, ch := range chains {
		adapter, err := dialAdapter(ctx, ch.RPCURL, adapterConfig(ch), logger)
		if err != nil {
			return nil, err
		}
		targets = append(targets, chainTarget{cfg: ch, adapter: adapter})
	}
	return targets, nil
}

func validateTargets(targets []chainTarget) error {
	if len(targets) == 0 {
		return fmt.Errorf("runtime wiring preflight failed: no chains configured")
	}

	seen := make(map[vaa.ChainID]struct{}, len(targets))
	failures := make([]string, 0)
	for _, target := range targets {
		id := target.cfg.ChainID
		if _, exists := seen[id]; exists {
			failures = append(failures, fmt.Sprintf("duplicate chain %s", id))
			continue
		}
		seen[id] = struct{}{}

		if target.adapter == nil {
			failures = append(failures, fmt.Sprintf("nil adapter for chain %s", id))
			continue
		}
		if got := target.adapter.Chain(); got != id {
			failures = append(failures, fmt.Sprintf("adapter mismatch for %s (got=%s)", id, got))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("runtime wiring preflight failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

// workerSpecs builds one message watcher per chain, plus an NTT lifecycle
// watcher for chains with managers configured.
func workerSpecs(
	cfg *config.Config,
	targets []chainTarget,
	st *storage,
	upserter ntt.Upserter,
	wrap func(store.MessageStore) store.MessageStore,
	logger *slog.Logger,
) ([]supervisor.WorkerSpec, error) {
	specs := make([]supervisor.WorkerSpec, 0, len(targets))
	for _, target := range targets {
		ch := target.cfg
		adapter := target.adapter
		chainLogger := logger.With("chain", ch.ChainID.String())

		msgCfg := watcherConfig(cfg, ch, model.ScopeMessages)
		msgStore := wrap(st.scope(model.ScopeMessages))
		specs = append(specs, supervisor.WorkerSpec{
			Chain: ch.ChainID,
			Scope: model.ScopeMessages,
			Factory: func(heartbeat func()) supervisor.Runner {
				return watcher.New(msgCfg, adapter, msgStore, chainLogger, watcher.WithHeartbeat(heartbeat))
			},
		})

		if len(ch.NTTManagers) == 0 {
			continue
		}
		if upserter == nil {
			return nil, fmt.Errorf("chain %s: ntt_managers require the %s backend", ch.Name, config.BackendPostgres)
		}
		producer := ntt.NewProducer(adapter, upserter, nttConfig(ch), chainLogger)
		nttCfg := watcherConfig(cfg, ch, model.ScopeNTT)
		nttStore := st.scope(model.ScopeNTT)
		specs = append(specs, supervisor.WorkerSpec{
			Chain: ch.ChainID,
			Scope: model.ScopeNTT,
			Factory: func(heartbeat func()) supervisor.Runner {
				return watcher.New(nttCfg, producer, nttStore, chainLogger, watcher.WithHeartbeat(heartbeat))
			},
		})
	}
	return specs, nil
}

func watcherConfig(cfg *config.Config, ch config.ChainConfig, scope model.Scope) watcher.Config {
	return watcher.Config{
		Chain:             ch.ChainID,
		Scope:             scope,
		Mode:              model.Mode(ch.Mode),
		InitialBlock:      ch.InitialBlock,
		MaxBatchSize:      cfg.BatchSize(ch),
		BackoffBase:       cfg.Watcher.BackoffBase,
		PollInterval:      cfg.PollInterval(ch),
		HeartbeatInterval: cfg.Supervisor.HeartbeatInterval,
	}
}

func newLogger(level string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}

// loadEnvFile loads path into the environment. A missing default file is
// not an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// loadRuntime loads configuration and installs the default logger.
func loadRuntime() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "watcher",
		Short:         "Watch wormhole core messages and NTT transfers across chains",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFile(envFile, cmd.Flags().Changed("env-file"))
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newRunCmd(), newMigrateCmd(), newCheckpointCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every configured chain watcher until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, !skipMigrations, logger)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply postgres migrations on startup")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply storage migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			st, err := openStorage(cmd.Context(), cfg, true, logger)
			if err != nil {
				return err
			}
			defer st.Close()
			logger.Info("migrations applied", "backend", st.backend)
			return nil
		},
	}
}

func run(parent context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) error {
	logger.Info("starting wormhole watcher",
		"backend", cfg.Storage.Backend,
		"chains", len(cfg.Chains),
		"redis_publish", cfg.Redis.PublishEnabled,
		"spy_endpoint", cfg.Spy.Endpoint,
	)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: serviceName,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: 1,
	})
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()
	if cfg.Tracing.Enabled {
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	st, err := openStorage(ctx, cfg, migrate, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	wrap := func(ms store.MessageStore) store.MessageStore { return ms }
	if cfg.Redis.PublishEnabled {
		client, err := newRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("initialize redis publisher: %w", err)
		}
		defer client.Close()
		wrap = func(ms store.MessageStore) store.MessageStore {
			return redispkg.NewPublishingStore(ms, client, cfg.Redis.Stream, logger)
		}
		logger.Info("redis publishing enabled", "stream", cfg.Redis.Stream)
	}

	var (
		upserter   ntt.Upserter
		lifecycles admin.LifeCycleGetter
	)
	if st.pg != nil {
		lcRepo := postgres.NewLifeCycleRepo(st.pg)
		upserter = lifecycle.NewReconciler(st.pg, lcRepo, postgres.NewPendingKeyRepo(st.pg), logger)
		lifecycles = lcRepo
	}

	targets, err := buildTargets(ctx, cfg.Chains, logger)
	if err != nil {
		return err
	}
	if err := validateTargets(targets); err != nil {
		return err
	}
	specs, err := workerSpecs(cfg, targets, st, upserter, wrap, logger)
	if err != nil {
		return err
	}

	alerter := alert.New(alert.Config{
		SlackWebhookURL: cfg.Alert.SlackWebhookURL,
		WebhookURL:      cfg.Alert.WebhookURL,
		Cooldown:        cfg.Alert.Cooldown,
	}, logger)
	sup := supervisor.New(supervisor.Config{
		HeartbeatTimeout: cfg.Supervisor.HeartbeatTimeout,
		DegradedAfter:    2 * cfg.Supervisor.HeartbeatInterval,
	}, logger, supervisor.WithAlerter(alerter))

	adminOpts := []admin.ServerOption{
		admin.WithCheckpointScope(model.ScopeNTT, st.scope(model.ScopeNTT)),
		admin.WithHealthProvider(sup),
	}
	if lifecycles != nil {
		adminOpts = append(adminOpts, admin.WithLifeCycles(lifecycles))
	}
	adminServer := admin.NewServer(st.scope(model.ScopeMessages), logger, adminOpts...)
	limiter := admin.NewRateLimiter(logger, admin.DefaultRouteLimits...)
	adminHandler := admin.AccessLogMiddleware(logger, limiter.Wrap(adminServer.Handler()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serveHTTP(gCtx, "health", cfg.Server.HealthPort, healthHandler(logger), logger)
	})
	g.Go(func() error {
		return serveHTTP(gCtx, "admin", cfg.Server.AdminPort, adminHandler, logger)
	})
	g.Go(func() error {
		return sup.Start(gCtx, specs)
	})

	if cfg.Spy.Endpoint != "" {
		spy, err := signedvaa.Dial(cfg.Spy.Endpoint)
		if err != nil {
			return err
		}
		defer spy.Close()
		consumer := signedvaa.NewConsumer(spy, st.scope(model.ScopeMessages), logger)
		g.Go(func() error {
			return consumer.Run(gCtx)
		})
		logger.Info("signed vaa tracking enabled", "endpoint", cfg.Spy.Endpoint)
	}

	startDBPoolStatsPump(gCtx, st.stats(), dbPoolStatsInterval, alerter, logger)

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watcher exited: %w", err)
	}
	logger.Info("watcher shut down gracefully")
	return nil
}

func healthHandler(logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func serveHTTP(ctx context.Context, name string, port int, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("server shutdown error", "server", name, "error", err)
		}
	}()

	logger.Info("server started", "server", name, "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

func main() {
	ctx := context.Background()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("watcher failed", "error", err)
		os.Exit(1)
	}
}
