package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/alert"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

const (
	DefaultHeartbeatTimeout = 10 * time.Minute
	DefaultCheckInterval    = 5 * time.Second
	DefaultShutdownTimeout  = 10 * time.Second

	heartbeatQueueSize = 64
	alertQueueSize     = 32
)

// Runner is one generation of a supervised worker.
type Runner interface {
	Run(ctx context.Context) error
}

// WorkerSpec describes a worker the supervisor keeps alive. Factory is
// called for every generation and must wire heartbeat into the runner,
// which calls it once per cycle.
type WorkerSpec struct {
	Chain   vaa.ChainID
	Scope   model.Scope
	Factory func(heartbeat func()) Runner
}

// Name is the registry key, e.g. "ethereum/vaa".
func (s WorkerSpec) Name() string {
	return s.Chain.String() + "/" + s.Scope.String()
}

type Config struct {
	HeartbeatTimeout time.Duration
	CheckInterval    time.Duration
	ShutdownTimeout  time.Duration
	// DegradedAfter marks a worker degraded when heartbeats are spaced
	// further apart than this. Zero disables.
	DegradedAfter time.Duration
}

type Option func(*Supervisor)

func WithAlerter(a alert.Alerter) Option {
	return func(s *Supervisor) { s.alerter = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.nowFn = now }
}

type worker struct {
	spec          WorkerSpec
	generation    uuid.UUID
	cancel        context.CancelFunc
	lastHeartbeat time.Time
	restarts      int
	stopped       bool
	health        *workerHealth
}

type heartbeat struct {
	name       string
	generation uuid.UUID
	at         time.Time
}

// Supervisor runs one goroutine per worker and restarts any worker whose
// heartbeat is older than HeartbeatTimeout. A restart cancels the old
// generation's context and starts a new one without waiting for the old
// goroutine to return.
type Supervisor struct {
	cfg     Config
	logger  *slog.Logger
	alerter alert.Alerter
	nowFn   func() time.Time

	mu      sync.Mutex
	workers map[string]*worker
	beats   chan heartbeat
	alerts  chan alert.Alert
	wg      sync.WaitGroup
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Supervisor {
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	s := &Supervisor{
		cfg:     cfg,
		logger:  logger.With("component", "supervisor"),
		alerter: alert.NoopAlerter{},
		nowFn:   time.Now,
		workers: make(map[string]*worker),
		beats:   make(chan heartbeat, heartbeatQueueSize),
		alerts:  make(chan alert.Alert, alertQueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start spawns every worker and monitors heartbeats until ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context, specs []WorkerSpec) error {
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if _, dup := seen[spec.Name()]; dup {
			return fmt.Errorf("duplicate worker %s", spec.Name())
		}
		seen[spec.Name()] = struct{}{}
	}

	s.mu.Lock()
	for _, spec := range specs {
		w := &worker{spec: spec, health: newWorkerHealth(s.cfg.DegradedAfter)}
		s.workers[spec.Name()] = w
		s.spawnLocked(ctx, w)
	}
	s.mu.Unlock()

	s.logger.Info("supervisor started",
		"workers", len(specs),
		"heartbeat_timeout", s.cfg.HeartbeatTimeout,
		"check_interval", s.cfg.CheckInterval,
	)

	alertsDone := make(chan struct{})
	go func() {
		defer close(alertsDone)
		s.deliverAlerts(ctx)
	}()
	defer func() { <-alertsDone }()

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case hb := <-s.beats:
			s.recordHeartbeat(hb)
		case <-ticker.C:
			s.checkHeartbeats(ctx)
		}
	}
}

// spawnLocked starts a new generation of w. Caller must hold s.mu.
func (s *Supervisor) spawnLocked(parent context.Context, w *worker) {
	gen := uuid.New()
	wctx, cancel := context.WithCancel(parent)
	w.generation = gen
	w.cancel = cancel
	w.lastHeartbeat = s.nowFn()
	w.stopped = false

	name := w.spec.Name()
	runner := w.spec.Factory(s.heartbeatFunc(w.spec, gen))

	s.wg.Add(1)
	go s.runWorker(wctx, w.spec, gen, runner)
	s.logger.Info("worker spawned", "worker", name, "generation", gen.String())
}

// heartbeatFunc never blocks the worker. A beat that finds the queue full
// is dropped; the next cycle's beat carries the same information.
func (s *Supervisor) heartbeatFunc(spec WorkerSpec, gen uuid.UUID) func() {
	name := spec.Name()
	chainLabel := model.ChainLabel(spec.Chain)
	scopeLabel := spec.Scope.String()
	return func() {
		select {
		case s.beats <- heartbeat{name: name, generation: gen, at: s.nowFn()}:
		default:
			metrics.SupervisorHeartbeatsDropped.WithLabelValues(chainLabel, scopeLabel).Inc()
		}
	}
}

func (s *Supervisor) runWorker(ctx context.Context, spec WorkerSpec, gen uuid.UUID, runner Runner) {
	defer s.wg.Done()
	name := spec.Name()
	chainLabel := model.ChainLabel(spec.Chain)
	scopeLabel := spec.Scope.String()

	defer func() {
		if r := recover(); r != nil {
			metrics.SupervisorWorkerExitsTotal.WithLabelValues(chainLabel, scopeLabel, "panic").Inc()
			s.logger.Error("worker panicked, waiting for heartbeat deadline to restart",
				"worker", name,
				"generation", gen.String(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	err := runner.Run(ctx)
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		metrics.SupervisorWorkerExitsTotal.WithLabelValues(chainLabel, scopeLabel, "cancelled").Inc()
		s.logger.Debug("worker cancelled", "worker", name, "generation", gen.String())
	case err == nil:
		metrics.SupervisorWorkerExitsTotal.WithLabelValues(chainLabel, scopeLabel, "completed").Inc()
		s.logger.Info("worker exited", "worker", name, "generation", gen.String())
		s.markStopped(name, gen)
	default:
		metrics.SupervisorWorkerExitsTotal.WithLabelValues(chainLabel, scopeLabel, "error").Inc()
		s.logger.Error("worker failed, waiting for heartbeat deadline to restart",
			"worker", name,
			"generation", gen.String(),
			"error", err,
		)
	}
}

func (s *Supervisor) markStopped(name string, gen uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[name]
	if !ok || w.generation != gen {
		return
	}
	w.stopped = true
	w.health.setStatus(HealthStatusInactive)
}

// recordHeartbeat ignores beats from superseded generations.
func (s *Supervisor) recordHeartbeat(hb heartbeat) bool {
	s.mu.Lock()
	w, ok := s.workers[hb.name]
	if !ok || w.generation != hb.generation {
		s.mu.Unlock()
		return false
	}
	since := hb.at.Sub(w.lastHeartbeat)
	w.lastHeartbeat = hb.at
	spec := w.spec
	recovered := w.health.recordHeartbeat(hb.at, since)
	s.mu.Unlock()

	if recovered {
		s.enqueueAlert(alert.Alert{
			Type:    alert.AlertTypeRecovery,
			Chain:   spec.Chain.String(),
			Scope:   spec.Scope.String(),
			Title:   "Watcher recovered",
			Message: fmt.Sprintf("%s is heartbeating again", spec.Name()),
		})
	}
	return true
}

func (s *Supervisor) checkHeartbeats(ctx context.Context) {
	now := s.nowFn()
	var alerts []alert.Alert

	s.mu.Lock()
	for name, w := range s.workers {
		if w.stopped {
			continue
		}
		chainLabel := model.ChainLabel(w.spec.Chain)
		scopeLabel := w.spec.Scope.String()
		age := now.Sub(w.lastHeartbeat)
		metrics.SupervisorHeartbeatAge.WithLabelValues(chainLabel, scopeLabel).Set(age.Seconds())
		if age <= s.cfg.HeartbeatTimeout {
			continue
		}

		w.restarts++
		metrics.SupervisorRestartsTotal.WithLabelValues(chainLabel, scopeLabel).Inc()
		s.logger.Warn("worker missed heartbeat deadline, restarting",
			"worker", name,
			"generation", w.generation.String(),
			"heartbeat_age", age,
			"restarts", w.restarts,
		)
		unhealthy := w.health.recordFailure(now)

		w.cancel()
		s.spawnLocked(ctx, w)

		a := alert.Alert{
			Type:    alert.AlertTypeWorkerRestart,
			Chain:   w.spec.Chain.String(),
			Scope:   scopeLabel,
			Title:   "Watcher restarted",
			Message: fmt.Sprintf("%s missed its heartbeat deadline and was restarted", name),
			Fields: map[string]string{
				"heartbeat_age": age.Round(time.Second).String(),
				"restarts":      strconv.Itoa(w.restarts),
			},
		}
		if unhealthy {
			a.Type = alert.AlertTypeUnhealthy
		}
		alerts = append(alerts, a)
	}
	s.mu.Unlock()

	for _, a := range alerts {
		s.enqueueAlert(a)
	}
}

// enqueueAlert hands a to the delivery goroutine so a slow channel never
// holds up the monitor loop. Alerts beyond the queue are dropped.
func (s *Supervisor) enqueueAlert(a alert.Alert) {
	select {
	case s.alerts <- a:
	default:
		metrics.SupervisorAlertsDropped.WithLabelValues(string(a.Type)).Inc()
		s.logger.Warn("alert queue full, dropping alert", "type", a.Type, "chain", a.Chain, "scope", a.Scope)
	}
}

func (s *Supervisor) deliverAlerts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-s.alerts:
			if err := s.alerter.Send(ctx, a); err != nil {
				s.logger.Warn("send alert failed", "type", a.Type, "error", err)
			}
		}
	}
}

func (s *Supervisor) shutdown() {
	s.mu.Lock()
	for _, w := range s.workers {
		w.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("supervisor stopped")
	case <-time.After(s.cfg.ShutdownTimeout):
		s.logger.Warn("supervisor shutdown timed out, abandoning hung workers", "timeout", s.cfg.ShutdownTimeout)
	}
}

// Snapshot returns the health of every worker sorted by name.
func (s *Supervisor) Snapshot() []HealthSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HealthSnapshot, 0, len(s.workers))
	for name, w := range s.workers {
		snap := HealthSnapshot{
			Name:          name,
			Chain:         w.spec.Chain.String(),
			Scope:         w.spec.Scope.String(),
			Generation:    w.generation.String(),
			Restarts:      w.restarts,
			LastHeartbeat: w.lastHeartbeat,
		}
		w.health.fill(&snap)
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Restarts returns the forced restart count for a worker.
func (s *Supervisor) Restarts(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.workers[name]; ok {
		return w.restarts
	}
	return 0
}
