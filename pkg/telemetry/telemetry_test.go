package telemetry

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePage()
	m.ObserveSeries(SeriesEmitted, 3)
	m.ObserveAttempt("cpuUsage", AttemptSuccess)
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.Equal(t, http.DefaultTransport, m.InstrumentRoundTripper(http.DefaultTransport))
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObservePage()
	m.ObservePage()
	m.ObserveSeries(SeriesSkippedTags, 4)
	m.ObserveSeries(SeriesEmitted, 0)
	m.ObserveAttempt("podCount", AttemptEmpty)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.pages))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.series.WithLabelValues(SeriesSkippedTags)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.series.WithLabelValues(SeriesEmitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.selectorAttempts.WithLabelValues("podCount", AttemptEmpty)))
}

func TestInstrumentRoundTripper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	m := New()
	client := &http.Client{Transport: m.InstrumentRoundTripper(nil)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("418", "get")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObservePage()

	path := filepath.Join(t.TempDir(), "podopt.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "podopt_pages_total 1")
}
