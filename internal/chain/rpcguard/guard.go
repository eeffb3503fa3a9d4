// Package rpcguard paces and sheds JSON-RPC calls against a single chain
// endpoint and records their outcome.
package rpcguard

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/circuitbreaker"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/retry"
)

const statusRejected = "rejected"

type Config struct {
	// Chain labels metrics.
	Chain string
	// RPS <= 0 leaves calls unpaced.
	RPS   float64
	Burst int
	// Benign errors are returned to the caller without counting against the
	// endpoint, e.g. a header the node has pruned.
	Benign []error
}

// Guard wraps every call with a token bucket wait followed by the endpoint's
// circuit breaker.
type Guard struct {
	chain   string
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
}

func New(cfg Config, onStateChange func(from, to circuitbreaker.State)) *Guard {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	benign := cfg.Benign
	return &Guard{
		chain:   cfg.Chain,
		limiter: rate.NewLimiter(limit, burst),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			IsFailure: func(err error) bool {
				if err == nil || errors.Is(err, context.Canceled) {
					return false
				}
				for _, b := range benign {
					if errors.Is(err, b) {
						return false
					}
				}
				return true
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				metrics.RPCCircuitState.WithLabelValues(cfg.Chain).Set(float64(to))
				if onStateChange != nil {
					onStateChange(from, to)
				}
			},
		}),
	}
}

// Call runs fn as the RPC named method. An open circuit fails fast with
// circuitbreaker.ErrCircuitOpen before any token is spent.
func (g *Guard) Call(ctx context.Context, method string, fn func(context.Context) error) error {
	if g.breaker.State() == circuitbreaker.StateOpen {
		g.record(method, statusRejected)
		return circuitbreaker.ErrCircuitOpen
	}
	if err := g.wait(ctx); err != nil {
		return err
	}
	err := g.breaker.Do(func() error { return fn(ctx) })
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		g.record(method, statusRejected)
		return err
	}
	g.record(method, status(err))
	return err
}

func (g *Guard) State() circuitbreaker.State {
	return g.breaker.State()
}

func (g *Guard) wait(ctx context.Context) error {
	if g.limiter.Allow() {
		return nil
	}
	metrics.RPCRateLimitWaits.WithLabelValues(g.chain).Inc()
	return g.limiter.Wait(ctx)
}

func (g *Guard) record(method, status string) {
	metrics.RPCCallsTotal.WithLabelValues(g.chain, method, status).Inc()
}

// status buckets err the way the watcher's retry policy would.
func status(err error) string {
	if err == nil {
		return "ok"
	}
	return string(retry.Classify(err).Class)
}
