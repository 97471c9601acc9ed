package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestReportMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReportMetrics(reg)
	m.ReportCreated("streetlight")
	m.ReportCreated("streetlight")
	m.StatusChanged("pending", "resolved")
	m.UpvoteToggled(true)
	m.UpvoteToggled(false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "reports_created_total", "category", "streetlight"); err != nil {
		t.Fatalf("fetch created: %v", err)
	} else if got != 2 {
		t.Fatalf("expected created=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "report_status_transitions_total", "to", "resolved"); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}

	for _, action := range []string{"added", "removed"} {
		if got, err := fetchCounterValue(mfs, "report_upvote_toggles_total", "action", action); err != nil {
			t.Fatalf("fetch upvotes %s: %v", action, err)
		} else if got != 1 {
			t.Fatalf("expected %s=1, got %f", action, got)
		}
	}
}

func TestHTTPMetricsExportsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/reports/{id}", 200, 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/reports/{id}"); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 1 {
		t.Fatalf("expected requests=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/reports/{id}"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestOutboxMetricsCountsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Published("report.created")
	m.Published("report.created")
	m.DeadLettered("")
	m.Pending(7)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_total", "result", "published"); err != nil || got != 2 {
		t.Fatalf("expected published=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_total", "event_type", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown event type counted once, got %f err=%v", got, err)
	}
	gauge := findMetricFamily(mfs, "outbox_pending_events")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 7 {
		t.Fatalf("expected pending gauge of 7")
	}
}

func TestCronJobMetricsRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	m.JobFinished("outbox-retention", 2*time.Second, nil)
	m.JobFinished("outbox-retention", time.Second, errors.New("db down"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, result := range []string{"success", "failure"} {
		if got, err := fetchCounterValue(mfs, "cron_job_runs_total", "result", result); err != nil || got != 1 {
			t.Fatalf("expected one %s run, got %f (%v)", result, got, err)
		}
	}
	if sum, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", "outbox-retention"); err != nil || sum != 3 {
		t.Fatalf("expected 3s observed, got %f (%v)", sum, err)
	}
	gauge := findMetricFamily(mfs, "cron_job_last_success_timestamp_seconds")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 1_700_000_000 {
		t.Fatalf("expected last success timestamp, got %v", gauge)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	NewCronJobMetrics(nil).JobFinished("x", time.Second, nil)
	NewReportMetrics(nil).ReportCreated("road")
	NewHTTPMetrics(nil).Observe("GET", "", 200, time.Millisecond)
	var m *ReportMetrics
	m.UpvoteToggled(true)
	var o *OutboxMetrics
	o.Pending(1)
	NewOutboxMetrics(nil).Published("report.created")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
