package bootstrap

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/civicpulse-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosersRunNewestFirstAndJoinErrors(t *testing.T) {
	var order []string
	var c Closers
	c.Add("db", func() error { order = append(order, "db"); return errors.New("db busy") })
	c.Add("redis", func() error { order = append(order, "redis"); return nil })
	c.Add("gcs", func() error { order = append(order, "gcs"); return errors.New("gcs gone") })

	err := c.Close()
	require.Error(t, err)
	assert.Equal(t, []string{"gcs", "redis", "db"}, order)
	assert.Contains(t, err.Error(), "close gcs: gcs gone")
	assert.Contains(t, err.Error(), "close db: db busy")

	assert.NoError(t, c.Close())
	assert.Len(t, order, 3)
}

func TestMetricsServerServesGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "bootstrap_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	logg := logger.New(logger.Options{Output: io.Discard})
	m := NewMetricsServer("127.0.0.1:0", reg, logg)
	require.NoError(t, m.Start(t.Context()))
	t.Cleanup(func() { _ = m.Close() })
	assert.Error(t, NewMetricsServer("bad::addr::", reg, logg).Start(t.Context()))
}

func TestMetricsServerHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "bootstrap_handler_gauge", Help: "test"})
	reg.MustRegister(gauge)
	gauge.Set(3)
	m := NewMetricsServer(":0", reg, logger.New(logger.Options{Output: io.Discard}))

	rec := httptest.NewRecorder()
	m.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bootstrap_handler_gauge 3")
}
