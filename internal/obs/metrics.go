package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hftexec"

// Metrics holds the execution engine collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	reconciliations  *prometheus.CounterVec
	inferredFills    prometheus.Counter
	externalOrders   prometheus.Counter
	queueFullWaits   *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
	dispatchLatency  *prometheus.HistogramVec
	inflightResolved *prometheus.CounterVec
	purged           *prometheus.CounterVec
	bridgeDropped    *prometheus.CounterVec
	bridgeErrors     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered, which tests rely on.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation units by report kind and result.",
		}, []string{"kind", "result"}),
		inferredFills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inferred_fills_total",
			Help:      "Fills generated locally to close a filled quantity gap.",
		}),
		externalOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_orders_total",
			Help:      "Orders synthesized from venue reports.",
		}),
		queueFullWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_full_waits_total",
			Help:      "Times a producer had to wait on a full queue.",
		}, []string{"queue"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Messages waiting in a queue.",
		}, []string{"queue"}),
		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_seconds",
			Help:      "Time spent handling one queued message.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"queue"}),
		inflightResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inflight_resolved_total",
			Help:      "In-flight orders resolved locally after the retry limit.",
		}, []string{"status"}),
		purged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_total",
			Help:      "Cache entries purged by kind.",
		}, []string{"kind"}),
		bridgeDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_dropped_total",
			Help:      "Bus messages dropped by a bridge because its buffer was full.",
		}, []string{"bridge"}),
		bridgeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_errors_total",
			Help:      "Bus messages a bridge failed to deliver.",
		}, []string{"bridge"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.reconciliations, m.inferredFills, m.externalOrders,
			m.queueFullWaits, m.queueDepth, m.dispatchLatency,
			m.inflightResolved, m.purged, m.bridgeDropped, m.bridgeErrors,
		)
	}
	return m
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// ObserveReconciliation counts one reconciled unit.
func (m *Metrics) ObserveReconciliation(kind string, ok bool) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(kind, result(ok)).Inc()
}

func (m *Metrics) IncInferredFill() {
	if m == nil {
		return
	}
	m.inferredFills.Inc()
}

func (m *Metrics) IncExternalOrder() {
	if m == nil {
		return
	}
	m.externalOrders.Inc()
}

func (m *Metrics) IncQueueFullWait(queue string) {
	if m == nil {
		return
	}
	m.queueFullWaits.WithLabelValues(queue).Inc()
}

func (m *Metrics) SetQueueDepth(queue string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// ObserveDispatch records how long one message took to handle.
func (m *Metrics) ObserveDispatch(queue string, d time.Duration) {
	if m == nil || d < 0 {
		return
	}
	m.dispatchLatency.WithLabelValues(queue).Observe(d.Seconds())
}

func (m *Metrics) IncInflightResolved(status string) {
	if m == nil {
		return
	}
	m.inflightResolved.WithLabelValues(status).Inc()
}

func (m *Metrics) AddPurged(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncBridgeDropped(bridge string) {
	if m == nil {
		return
	}
	m.bridgeDropped.WithLabelValues(bridge).Inc()
}

func (m *Metrics) IncBridgeError(bridge string) {
	if m == nil {
		return
	}
	m.bridgeErrors.WithLabelValues(bridge).Inc()
}
