package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opscart/pod-sizing-optimizer/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = 1024 * 1024

func series(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return fmt.Sprintf(`{"metricId": "m", "data": [{"dimensions": ["prod", "api", "deployment"],
	  "dimensionMap": {"k8s.namespace.name": "prod", "k8s.workload.name": "api", "k8s.workload.kind": "deployment"},
	  "values": [%s]}]}`, strings.Join(parts, ","))
}

// fakeDynatrace answers metric queries by selector family
func fakeDynatrace(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Api-Token env-token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"bad token"}`)
			return
		}

		q := r.URL.Query()
		selector := q.Get("metricSelector")
		var result string
		switch {
		case q.Get("resolution") == "Inf":
			result = `{"metricId": "pods", "data": [
			  {"dimensions": ["prod"], "dimensionMap": {"k8s.namespace.name": "prod"}, "values": [6]},
			  {"dimensions": ["dev"], "dimensionMap": {"k8s.namespace.name": "dev"}, "values": [1]}]}`
		case strings.Contains(selector, "cpu_usage"):
			result = series(0.3, 0.3, 0.3, 0.3, 0.3)
		case strings.Contains(selector, "memory_working_set"):
			result = series(100*mib, 100*mib)
		case strings.Contains(selector, "requests_cpu"):
			result = series(1.0)
		case strings.Contains(selector, "requests_memory"):
			result = series(512 * mib)
		case strings.Contains(selector, "workload.pods"):
			result = series(6, 6)
		default:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "unknown selector %s", selector)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"totalCount": 1, "result": [%s]}`, result)
	}))
}

func writeTestConfig(t *testing.T, endpoint string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf("endpoint: %s\nnamespaces: [prod]\ntimeWindow: 7d\n", endpoint)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunWritesReport(t *testing.T) {
	t.Setenv(config.TokenEnvVar, "env-token")
	srv := fakeDynatrace(t)
	defer srv.Close()

	dir := t.TempDir()
	reportPath := filepath.Join(dir, "out", "report.json")
	metricsPath := filepath.Join(dir, "client.prom")

	stdout, _, err := execute(t, "-c", writeTestConfig(t, srv.URL), "-o", reportPath, "--metrics-textfile", metricsPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Recommendations generated: 1")
	assert.Contains(t, stdout, "Report written to: "+reportPath)

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report struct {
		Recommendations []struct {
			Workload              string  `json:"workload"`
			RecommendedCPURequest float64 `json:"recommendedCpuRequest"`
			RecommendedReplicas   int     `json:"recommendedReplicas"`
			ReplicaAction         string  `json:"replicaAction"`
			MemoryStatus          string  `json:"memoryStatus"`
		} `json:"recommendations"`
		Config map[string]any `json:"config"`
	}
	require.NoError(t, json.Unmarshal(raw, &report))
	require.Len(t, report.Recommendations, 1)
	rec := report.Recommendations[0]
	assert.Equal(t, "api", rec.Workload)
	assert.InDelta(t, 0.33, rec.RecommendedCPURequest, 1e-9)
	assert.Equal(t, 6, rec.RecommendedReplicas)
	assert.Equal(t, "keep", rec.ReplicaAction)
	assert.Equal(t, "over-provisioned", rec.MemoryStatus)
	assert.NotContains(t, string(raw), "env-token")

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "podopt_pages_total 5")
}

func TestRunDiscoverNamespaces(t *testing.T) {
	t.Setenv(config.TokenEnvVar, "env-token")
	srv := fakeDynatrace(t)
	defer srv.Close()

	stdout, _, err := execute(t, "-c", writeTestConfig(t, srv.URL), "--discover-namespaces")
	require.NoError(t, err)
	assert.Equal(t, "Discovered namespaces:\n- dev\n- prod\n", stdout)
}

func TestRunFailsOnAPIError(t *testing.T) {
	t.Setenv(config.TokenEnvVar, "wrong-token")
	srv := fakeDynatrace(t)
	defer srv.Close()

	_, _, err := execute(t, "-c", writeTestConfig(t, srv.URL), "-o", filepath.Join(t.TempDir(), "r.html"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable Dynatrace selector for")
	assert.Contains(t, err.Error(), "Dynatrace API error 401")
}

func TestRunRejectsBadFlags(t *testing.T) {
	t.Setenv(config.TokenEnvVar, "env-token")

	_, _, err := execute(t, "--filter", "idle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown filter")

	_, _, err = execute(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pod-opt dev\n", stdout)
}
