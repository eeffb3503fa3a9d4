package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Watcher, supervisor, store and lifecycle counters, partitioned by chain
// (numeric wormhole chain id) and scope.

var (
	// Watcher
	WatcherCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "watcher",
		Name:      "cycles_total",
		Help:      "Total completed watcher poll cycles",
	}, []string{"chain", "scope"})

	WatcherErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "watcher",
		Name:      "errors_total",
		Help:      "Total watcher step failures by step and error class",
	}, []string{"chain", "scope", "step", "class"})

	WatcherBlocksScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "watcher",
		Name:      "blocks_scanned_total",
		Help:      "Total blocks covered by fetched ranges",
	}, []string{"chain", "scope"})

	WatcherMessagesObserved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "watcher",
		Name:      "messages_observed_total",
		Help:      "Total messages returned by the chain collaborator",
	}, []string{"chain", "scope"})

	WatcherLastBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watcher",
		Subsystem: "watcher",
		Name:      "last_block",
		Help:      "Last block durably stored",
	}, []string{"chain", "scope"})

	WatcherFinalizedHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watcher",
		Subsystem: "watcher",
		Name:      "finalized_height",
		Help:      "Last finalized height reported by the chain",
	}, []string{"chain", "scope"})

	WatcherRetryCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watcher",
		Subsystem: "watcher",
		Name:      "retry_count",
		Help:      "Current consecutive failure count",
	}, []string{"chain", "scope"})

	WatcherCycleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "watcher",
		Subsystem: "watcher",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a fetch and store cycle",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"chain", "scope"})

	// Supervisor
	SupervisorRestartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "supervisor",
		Name:      "restarts_total",
		Help:      "Total forced worker restarts after a missed heartbeat",
	}, []string{"chain", "scope"})

	SupervisorWorkerExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "supervisor",
		Name:      "worker_exits_total",
		Help:      "Total worker exits by reason",
	}, []string{"chain", "scope", "reason"})

	SupervisorHeartbeatAge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watcher",
		Subsystem: "supervisor",
		Name:      "heartbeat_age_seconds",
		Help:      "Seconds since the worker's last heartbeat at the last monitor pass",
	}, []string{"chain", "scope"})

	SupervisorHeartbeatsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "supervisor",
		Name:      "heartbeats_dropped_total",
		Help:      "Total heartbeats dropped because the monitor queue was full",
	}, []string{"chain", "scope"})

	SupervisorAlertsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "supervisor",
		Name:      "alerts_dropped_total",
		Help:      "Total alerts dropped because the delivery queue was full",
	}, []string{"type"})

	// Store
	StoreRangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "store",
		Name:      "ranges_stored_total",
		Help:      "Total StoreRange calls that committed",
	}, []string{"backend", "chain", "scope"})

	StoreMessagesInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "store",
		Name:      "messages_inserted_total",
		Help:      "Total new message rows (duplicates excluded)",
	}, []string{"backend", "chain"})

	StorePublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "store",
		Name:      "publish_errors_total",
		Help:      "Total failures publishing stored messages to the stream",
	}, []string{"chain"})

	// Lifecycle
	LifecycleUpsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "lifecycle",
		Name:      "upserts_total",
		Help:      "Total lifecycle upserts by event kind and outcome",
	}, []string{"event", "outcome"})

	LifecycleUpsertLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "watcher",
		Subsystem: "lifecycle",
		Name:      "upsert_duration_seconds",
		Help:      "Lifecycle upsert transaction duration",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"event"})

	LifecycleEventsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "lifecycle",
		Name:      "events_decoded_total",
		Help:      "Total NTT log events decoded",
	}, []string{"chain", "event"})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total chain RPC calls by method and status",
	}, []string{"chain", "method", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total RPC calls delayed by the rate limiter",
	}, []string{"chain"})

	RPCCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "watcher",
		Subsystem: "rpc",
		Name:      "circuit_state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"chain"})

	// Signed VAAs
	SignedVaasReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "signedvaa",
		Name:      "received_total",
		Help:      "Total signed VAAs received from the spy",
	}, []string{"emitter_chain"})

	SignedVaaErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "signedvaa",
		Name:      "errors_total",
		Help:      "Total signed VAA parse or persistence failures",
	})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent by channel and type",
	}, []string{"channel", "type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts suppressed by cooldown",
	}, []string{"channel", "type"})

	// DB pool
	DBPoolOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "watcher",
		Subsystem: "db",
		Name:      "pool_open_connections",
		Help:      "Open connections in the database pool",
	})

	DBPoolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "watcher",
		Subsystem: "db",
		Name:      "pool_in_use",
		Help:      "Connections currently in use",
	})

	DBPoolWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "watcher",
		Subsystem: "db",
		Name:      "pool_wait_count",
		Help:      "Total connections waited for",
	})

	// Read API
	AdminRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "admin",
		Name:      "requests_total",
		Help:      "Total read API requests by method, route and status",
	}, []string{"method", "route", "status"})

	AdminRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watcher",
		Subsystem: "admin",
		Name:      "rate_limited_total",
		Help:      "Total read API requests rejected by the rate limiter",
	}, []string{"endpoint"})
)
