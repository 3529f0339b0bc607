package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveReconciliation("order", true)
	m.ObserveReconciliation("order", false)
	m.ObserveReconciliation("order", false)
	m.IncInferredFill()
	m.SetQueueDepth("cmd", 7)
	m.AddPurged("orders", 3)
	m.AddPurged("orders", 0)
	m.ObserveDispatch("evt", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconciliations.WithLabelValues("order", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reconciliations.WithLabelValues("order", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inferredFills))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.queueDepth.WithLabelValues("cmd")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.purged.WithLabelValues("orders")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveReconciliation("fill", true)
		m.IncExternalOrder()
		m.IncQueueFullWait("cmd")
		m.ObserveDispatch("cmd", time.Second)
		m.IncInflightResolved("REJECTED")
		m.IncBridgeDropped("redis")
		m.IncBridgeError("kafka")
	})
}
