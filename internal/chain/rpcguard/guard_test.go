package rpcguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/circuitbreaker"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
)

var errPruned = errors.New("header not found")

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestGuard_CountsCallsByStatus(t *testing.T) {
	g := New(Config{Chain: "guard-status"}, nil)
	ctx := context.Background()

	require.NoError(t, g.Call(ctx, "eth_getLogs", func(context.Context) error { return nil }))
	require.Error(t, g.Call(ctx, "eth_getLogs", func(context.Context) error { return errors.New("request timed out") }))
	require.Error(t, g.Call(ctx, "eth_getLogs", func(context.Context) error { return errors.New("method not found") }))

	assert.Equal(t, 1.0, value(t, metrics.RPCCallsTotal.WithLabelValues("guard-status", "eth_getLogs", "ok")))
	assert.Equal(t, 1.0, value(t, metrics.RPCCallsTotal.WithLabelValues("guard-status", "eth_getLogs", "transient")))
	assert.Equal(t, 1.0, value(t, metrics.RPCCallsTotal.WithLabelValues("guard-status", "eth_getLogs", "terminal")))
}

func TestGuard_OpensAfterRepeatedFailures(t *testing.T) {
	var changes []string
	g := New(Config{Chain: "guard-open"}, func(from, to circuitbreaker.State) {
		changes = append(changes, to.String())
	})
	ctx := context.Background()
	down := errors.New("connection refused")

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, g.Call(ctx, "eth_getBlockByNumber", func(context.Context) error { return down }), down)
	}
	assert.Equal(t, circuitbreaker.StateOpen, g.State())
	assert.Equal(t, []string{"open"}, changes)
	assert.Equal(t, 1.0, value(t, metrics.RPCCircuitState.WithLabelValues("guard-open")))

	called := false
	err := g.Call(ctx, "eth_getBlockByNumber", func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, 1.0, value(t, metrics.RPCCallsTotal.WithLabelValues("guard-open", "eth_getBlockByNumber", statusRejected)))
}

func TestGuard_BenignErrorsKeepCircuitClosed(t *testing.T) {
	g := New(Config{Chain: "guard-benign", Benign: []error{errPruned}}, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		err := g.Call(ctx, "eth_getBlockByNumber", func(context.Context) error {
			return errors.Join(errors.New("get header"), errPruned)
		})
		assert.ErrorIs(t, err, errPruned)
	}
	for i := 0; i < 10; i++ {
		_ = g.Call(ctx, "eth_getLogs", func(context.Context) error { return context.Canceled })
	}
	assert.Equal(t, circuitbreaker.StateClosed, g.State())
}

func TestGuard_PacesCalls(t *testing.T) {
	g := New(Config{Chain: "guard-pace", RPS: 0.1, Burst: 1}, nil)
	require.NoError(t, g.Call(context.Background(), "eth_getLogs", func(context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := g.Call(ctx, "eth_getLogs", func(context.Context) error { called = true; return nil })
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, 1.0, value(t, metrics.RPCRateLimitWaits.WithLabelValues("guard-pace")))
}

func TestGuard_UnpacedWhenRPSUnset(t *testing.T) {
	g := New(Config{Chain: "guard-unpaced"}, nil)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, g.Call(context.Background(), "eth_getLogs", func(context.Context) error { return nil }))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
