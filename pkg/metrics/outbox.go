package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the outbox publisher.
type OutboxMetrics struct {
	results *prometheus.CounterVec
	pending prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox rows handled by the publisher, by result.",
	}, []string{"event_type", "result"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_pending_events",
		Help: "Outbox rows waiting to be published.",
	})
	reg.MustRegister(results, pending)
	return &OutboxMetrics{results: results, pending: pending}
}

// Published, Retried and DeadLettered count one row each.
func (m *OutboxMetrics) Published(eventType string) { m.inc(eventType, "published") }

func (m *OutboxMetrics) Retried(eventType string) { m.inc(eventType, "retry") }

func (m *OutboxMetrics) DeadLettered(eventType string) { m.inc(eventType, "dead_lettered") }

// Pending sets the backlog gauge.
func (m *OutboxMetrics) Pending(n int64) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *OutboxMetrics) inc(eventType, result string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(normalizeLabel(eventType), result).Inc()
}
