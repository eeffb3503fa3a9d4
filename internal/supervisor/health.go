package supervisor

import (
	"slices"
	"sync"
	"time"
)

// HealthStatus is the liveness state reported for a supervised worker.
type HealthStatus string

const (
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"
	HealthStatusInactive  HealthStatus = "INACTIVE"

	// DefaultUnhealthyThreshold is the number of consecutive forced restarts
	// before a worker is reported unhealthy.
	DefaultUnhealthyThreshold = 3

	latencyWindowSize = 10
)

// workerHealth derives a status from heartbeat spacing and forced restarts.
type workerHealth struct {
	mu                  sync.RWMutex
	status              HealthStatus
	consecutiveFailures int
	unhealthyThreshold  int
	degradedAfter       time.Duration
	lastSuccessAt       *time.Time
	lastFailureAt       *time.Time
	recentIntervals     []time.Duration
}

func newWorkerHealth(degradedAfter time.Duration) *workerHealth {
	return &workerHealth{
		status:             HealthStatusUnknown,
		unhealthyThreshold: DefaultUnhealthyThreshold,
		degradedAfter:      degradedAfter,
		recentIntervals:    make([]time.Duration, 0, latencyWindowSize),
	}
}

// recordHeartbeat returns true when the worker recovered from UNHEALTHY.
func (h *workerHealth) recordHeartbeat(at time.Time, sincePrevious time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.recentIntervals) >= latencyWindowSize {
		h.recentIntervals = h.recentIntervals[1:]
	}
	h.recentIntervals = append(h.recentIntervals, sincePrevious)

	wasUnhealthy := h.status == HealthStatusUnhealthy
	h.consecutiveFailures = 0
	h.lastSuccessAt = &at
	if h.isDegraded() {
		h.status = HealthStatusDegraded
	} else {
		h.status = HealthStatusHealthy
	}
	return wasUnhealthy
}

// recordFailure returns true when this call crossed the unhealthy threshold.
func (h *workerHealth) recordFailure(at time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures++
	h.lastFailureAt = &at
	if h.consecutiveFailures >= h.unhealthyThreshold && h.status != HealthStatusUnhealthy {
		h.status = HealthStatusUnhealthy
		return true
	}
	if h.status != HealthStatusUnhealthy {
		h.status = HealthStatusDegraded
	}
	return false
}

func (h *workerHealth) setStatus(s HealthStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = s
}

// isDegraded reports whether the p95 heartbeat spacing exceeds the
// threshold. Must be called with mu held.
func (h *workerHealth) isDegraded() bool {
	if h.degradedAfter <= 0 || len(h.recentIntervals) < 2 {
		return false
	}
	sorted := slices.Clone(h.recentIntervals)
	slices.Sort(sorted)
	idx := (95*len(sorted) - 1) / 100
	return sorted[idx] > h.degradedAfter
}

func (h *workerHealth) fill(s *HealthSnapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s.Status = string(h.status)
	s.ConsecutiveFailures = h.consecutiveFailures
	s.LastSuccessAt = h.lastSuccessAt
	s.LastFailureAt = h.lastFailureAt
}

// HealthSnapshot is a point-in-time view of one supervised worker (JSON-safe).
type HealthSnapshot struct {
	Name                string     `json:"name"`
	Chain               string     `json:"chain"`
	Scope               string     `json:"scope"`
	Status              string     `json:"status"`
	Generation          string     `json:"generation"`
	Restarts            int        `json:"restarts"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastHeartbeat       time.Time  `json:"last_heartbeat"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
}
