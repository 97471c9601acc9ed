package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReportMetrics counts report lifecycle events.
type ReportMetrics struct {
	created     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	upvotes     *prometheus.CounterVec
}

// NewReportMetrics registers the report metrics on the provided registerer.
func NewReportMetrics(reg prometheus.Registerer) *ReportMetrics {
	if reg == nil {
		return &ReportMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_created_total",
		Help: "Reports submitted, by category.",
	}, []string{"category"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_status_transitions_total",
		Help: "Report status transitions.",
	}, []string{"from", "to"})
	upvotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_upvote_toggles_total",
		Help: "Upvote toggles, by resulting state.",
	}, []string{"action"})
	reg.MustRegister(created, transitions, upvotes)
	return &ReportMetrics{
		created:     created,
		transitions: transitions,
		upvotes:     upvotes,
	}
}

// ReportCreated increments the created counter for category.
func (m *ReportMetrics) ReportCreated(category string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(category)).Inc()
}

// StatusChanged records one transition.
func (m *ReportMetrics) StatusChanged(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// UpvoteToggled records whether the toggle added or removed a vote.
func (m *ReportMetrics) UpvoteToggled(upvoted bool) {
	if m == nil || m.upvotes == nil {
		return
	}
	action := "removed"
	if upvoted {
		action = "added"
	}
	m.upvotes.WithLabelValues(action).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
