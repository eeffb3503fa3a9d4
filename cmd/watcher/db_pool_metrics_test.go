package main

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/alert"
	appmetrics "github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
)

type fakeDBStatsProvider struct {
	stats sql.DBStats
}

func (f fakeDBStatsProvider) Stats() sql.DBStats {
	return f.stats
}

type panicDBStatsProvider struct{}

func (panicDBStatsProvider) Stats() sql.DBStats {
	panic("db stats temporarily unavailable")
}

type flakyDBStatsProvider struct {
	failUntil int
	stats     sql.DBStats
	calls     int
	callCh    chan int
}

func (f *flakyDBStatsProvider) Stats() sql.DBStats {
	f.calls++
	if f.callCh != nil {
		f.callCh <- f.calls
	}
	if f.calls <= f.failUntil {
		panic("db stats temporarily unavailable")
	}
	return f.stats
}

// channelAlerter sends alerts to a channel for test verification.
type channelAlerter struct {
	mu sync.Mutex
	ch chan alert.Alert
}

func (c *channelAlerter) Send(_ context.Context, a alert.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case c.ch <- a:
	default:
	}
	return nil
}

func testGauges(prefix string) dbPoolStatsGauges {
	return dbPoolStatsGauges{
		open:      prometheus.NewGauge(prometheus.GaugeOpts{Name: prefix + "_open"}),
		inUse:     prometheus.NewGauge(prometheus.GaugeOpts{Name: prefix + "_in_use"}),
		waitCount: prometheus.NewGauge(prometheus.GaugeOpts{Name: prefix + "_wait_count"}),
	}
}

func TestCollectDBPoolStats_RecordsMetrics(t *testing.T) {
	provider := fakeDBStatsProvider{
		stats: sql.DBStats{
			OpenConnections: 10,
			InUse:           3,
			Idle:            7,
			WaitCount:       13,
		},
	}
	gauges := testGauges("test_db_pool")

	stats, err := collectDBPoolStats(provider, gauges)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.InUse)

	assert.Equal(t, 10.0, readGaugeValue(t, gauges.open))
	assert.Equal(t, 3.0, readGaugeValue(t, gauges.inUse))
	assert.Equal(t, 13.0, readGaugeValue(t, gauges.waitCount))
}

func TestCollectDBPoolStats_ReturnsErrorOnPanic(t *testing.T) {
	_, err := collectDBPoolStats(panicDBStatsProvider{}, testGauges("test_db_pool_panic"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db pool stats collection panicked")
}

func TestCollectDBPoolStats_RejectsNilProvider(t *testing.T) {
	_, err := collectDBPoolStats(nil, testGauges("test_db_pool_nil"))
	require.Error(t, err)
}

func TestPoolExhausted(t *testing.T) {
	tests := []struct {
		name  string
		stats sql.DBStats
		want  bool
	}{
		{name: "above ratio", stats: sql.DBStats{MaxOpenConnections: 10, InUse: 9}, want: true},
		{name: "at ratio", stats: sql.DBStats{MaxOpenConnections: 10, InUse: 8}, want: false},
		{name: "half", stats: sql.DBStats{MaxOpenConnections: 10, InUse: 5}, want: false},
		{name: "unlimited pool", stats: sql.DBStats{MaxOpenConnections: 0, InUse: 100}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, poolExhausted(tt.stats))
		})
	}
}

func TestStartDBPoolStatsPump_ToleratesTransientStatsFailure(t *testing.T) {
	callCh := make(chan int, 3)
	provider := &flakyDBStatsProvider{
		failUntil: 1,
		stats: sql.DBStats{
			OpenConnections: 10,
			InUse:           3,
		},
		callCh: callCh,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startDBPoolStatsPump(ctx, provider, 5*time.Millisecond, nil, discardLogger())

	timeout := time.After(time.Second)
	for {
		select {
		case count := <-callCh:
			if count >= 2 {
				// The gauge is written right after Stats returns.
				assert.Eventually(t, func() bool {
					return readGaugeValue(t, appmetrics.DBPoolOpen) == 10.0
				}, time.Second, 5*time.Millisecond)
				cancel()
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for startup metric collection recovery")
		}
	}
}

func TestStartDBPoolStatsPump_AlertsOnExhaustion(t *testing.T) {
	provider := fakeDBStatsProvider{
		stats: sql.DBStats{
			MaxOpenConnections: 10,
			InUse:              9,
		},
	}
	alerter := &channelAlerter{ch: make(chan alert.Alert, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startDBPoolStatsPump(ctx, provider, time.Hour, alerter, discardLogger())

	select {
	case a := <-alerter.ch:
		assert.Equal(t, alert.AlertTypeDBPool, a.Type)
		assert.Contains(t, a.Message, "9/10")
	case <-time.After(time.Second):
		t.Fatal("expected alert to be sent")
	}
}

func TestStartDBPoolStatsPump_NoopWithoutProvider(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Must return without starting a sampler or panicking.
	startDBPoolStatsPump(ctx, nil, time.Millisecond, nil, discardLogger())
	startDBPoolStatsPump(ctx, fakeDBStatsProvider{}, 0, nil, discardLogger())
}

func readGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}
