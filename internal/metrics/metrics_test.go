package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics_CounterIncrement(t *testing.T) {
	c := SupervisorRestartsTotal.WithLabelValues("2", "vaa-test")
	before := counterValue(t, c)
	c.Inc()
	assert.Equal(t, before+1, counterValue(t, c))
}

func TestMetrics_LabelCardinality(t *testing.T) {
	assert.NotPanics(t, func() {
		WatcherErrorsTotal.WithLabelValues("2", "vaa", "fetch_range", "transient").Inc()
		StoreRangesTotal.WithLabelValues("postgres", "2", "vaa").Inc()
		LifecycleUpsertsTotal.WithLabelValues("transfer_sent", "inserted").Inc()
		RPCCallsTotal.WithLabelValues("2", "eth_getLogs", "ok").Inc()
		WatcherCycleLatency.WithLabelValues("2", "vaa").Observe(0.1)
		AdminRequestsTotal.WithLabelValues("GET", "/api/v1/checkpoints", "200").Inc()
		AdminRateLimited.WithLabelValues("GET:/api/v1/missing-vaas").Inc()
	})
}
