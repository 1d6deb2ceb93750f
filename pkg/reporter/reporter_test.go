package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opscart/pod-sizing-optimizer/pkg/config"
	"github.com/opscart/pod-sizing-optimizer/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport(t *testing.T, filter Filter) *Report {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Endpoint = "https://example.live.dynatrace.com"
	cfg.APIToken = "dt0c01.very-secret"
	cfg.Namespaces = []string{"prod", "dev"}

	recs := []models.WorkloadRecommendation{
		{
			Namespace: "dev", Workload: "db", Kind: models.KindStatefulSet,
			PCPUUsage: 0.1, CurrentCPURequest: 1, RecommendedCPURequest: 0.11,
			PMemoryUsage: 256 * mebibyte, CurrentMemoryRequest: 1024 * mebibyte, RecommendedMemoryRequest: 332.8 * mebibyte,
			CurrentReplicas: 1, RecommendedReplicas: 1,
			CPUStatus: models.StatusOverProvisioned, MemoryStatus: models.StatusOverProvisioned,
			ReplicaAction: models.ReplicaNotApplicable, CPUPattern: "steady",
		},
		{
			Namespace: "prod", Workload: "api", Kind: models.KindDeployment,
			PCPUUsage: 0.8, CurrentCPURequest: 1, RecommendedCPURequest: 0.88,
			CurrentReplicas: 3, RecommendedReplicas: 3,
			CPUStatus: models.StatusBalanced, MemoryStatus: models.StatusUnknown,
			ReplicaAction: models.ReplicaKeep, CPUPattern: "unknown",
		},
	}
	summaries := []models.NamespaceSummary{
		{Namespace: "dev", WorkloadCount: 1, OverProvisionedCount: 1, TotalCPUWaste: 0.9, TotalMemoryWaste: 768 * mebibyte},
		{Namespace: "prod", WorkloadCount: 1, TotalCPUWaste: 0.2},
	}
	return New(FormatHTML, filter).Generate(cfg, recs, summaries)
}

func TestGenerate(t *testing.T) {
	report := testReport(t, FilterAll)

	_, err := uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 2, report.WorkloadCount)
	assert.Equal(t, 1, report.LowUtilizationCount)
	assert.InDelta(t, 1.1, report.TotalCPUWaste, 1e-9)
	assert.Equal(t, "7d", report.Window)
	assert.Equal(t, 90, report.Percentile)
	assert.Equal(t, 1.3, report.MemoryHeadroom)
	assert.False(t, report.GeneratedAt.IsZero())
	assert.Equal(t, 7*24*time.Hour, report.GeneratedAt.Sub(report.WindowStart))
}

func TestGenerateWindowStartFollowsWindow(t *testing.T) {
	cfg := config.NewConfig()
	cfg.TimeWindow = "36h"
	report := New(FormatJSON, FilterAll).Generate(cfg, nil, nil)
	assert.Equal(t, 36*time.Hour, report.GeneratedAt.Sub(report.WindowStart))
}

func TestVisible(t *testing.T) {
	assert.Len(t, testReport(t, FilterAll).Visible(), 2)

	low := testReport(t, FilterLowUtilization).Visible()
	require.Len(t, low, 1)
	assert.Equal(t, "db", low[0].Workload)
}

func TestGenerateHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateHTML(testReport(t, FilterLowUtilization), &buf))
	html := buf.String()

	assert.Contains(t, html, "Namespace Summary (Ranked by Waste)")
	assert.Contains(t, html, "dev/db")
	assert.Contains(t, html, "prod/api", "html keeps every row; the toggle hides them")
	assert.Contains(t, html, `data-low-utilization="true"`)
	assert.Contains(t, html, `data-low-utilization="false"`)
	assert.Regexp(t, `var onlyLow = +true *;`, html)
	assert.Contains(t, html, "768Mi")
	assert.Contains(t, html, "prod, dev")
	assert.Contains(t, html, "Data from (UTC):")
	assert.NotContains(t, html, "very-secret")
}

func TestGenerateHTMLEscapesNames(t *testing.T) {
	report := testReport(t, FilterAll)
	report.Recommendations[0].Workload = "<script>alert(1)</script>"

	var buf bytes.Buffer
	require.NoError(t, GenerateHTML(report, &buf))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
	assert.Regexp(t, `var onlyLow = +false *;`, buf.String())
}

func TestGenerateCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateCSV(testReport(t, FilterLowUtilization), &buf))

	r := csv.NewReader(strings.NewReader(buf.String()))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, "Namespace", records[0][0])
	assert.Equal(t, "CPU p90", records[0][3])
	assert.Equal(t, "Memory p90", records[0][7])
	assert.Equal(t, []string{"dev", "db", "statefulset", "0.10", "1.00", "0.11", "over-provisioned",
		"256Mi", "1Gi", "333Mi", "over-provisioned", "1", "1", "n/a", "steady"}, records[1])
	// filtered out
	assert.NotContains(t, buf.String(), "api")
	assert.Contains(t, buf.String(), "NAMESPACE SUMMARY")
	assert.Contains(t, buf.String(), "dev,1,1,0,0.90,768Mi")
	assert.Contains(t, buf.String(), "Window Start,")
}

func TestGenerateCSVHeaderFollowsPercentile(t *testing.T) {
	report := testReport(t, FilterAll)
	report.Percentile = 95

	var buf bytes.Buffer
	require.NoError(t, GenerateCSV(report, &buf))
	header, err := csv.NewReader(strings.NewReader(buf.String())).Read()
	require.NoError(t, err)
	assert.Equal(t, "CPU p95", header[3])
	assert.Equal(t, "Memory p95", header[7])
	assert.NotContains(t, header, "CPU pN")
}

func TestGenerateJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateJSON(testReport(t, FilterLowUtilization), &buf))
	assert.NotContains(t, buf.String(), "very-secret")

	var decoded struct {
		RunID           string                          `json:"runId"`
		Recommendations []models.WorkloadRecommendation `json:"recommendations"`
		Summaries       []models.NamespaceSummary       `json:"namespaceSummary"`
		Config          map[string]any                  `json:"config"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.NotEmpty(t, decoded.RunID)
	require.Len(t, decoded.Recommendations, 1)
	assert.Equal(t, models.ReplicaNotApplicable, decoded.Recommendations[0].ReplicaAction)
	assert.Len(t, decoded.Summaries, 2)
	assert.Equal(t, "<secret>", decoded.Config["apiToken"])
}

func TestWriteFile(t *testing.T) {
	report := testReport(t, FilterAll)
	path := filepath.Join(t.TempDir(), "nested", "report.json")

	abs, err := New(FormatJSON, FilterAll).WriteFile(report, path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))

	raw, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name, path string
		want       ReportFormat
		wantErr    bool
	}{
		{"", "./report.html", FormatHTML, false},
		{"", "./out.CSV", FormatCSV, false},
		{"", "./out.json", FormatJSON, false},
		{"", "./out", FormatHTML, false},
		{"json", "./report.html", FormatJSON, false},
		{"pdf", "", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name, tt.path)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "ParseFormat(%q, %q)", tt.name, tt.path)
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParseFilter("low-utilization")
	require.NoError(t, err)
	assert.Equal(t, FilterLowUtilization, f)

	_, err = ParseFilter("idle")
	assert.Error(t, err)
}

func TestFormatMemory(t *testing.T) {
	assert.Equal(t, "0", formatMemory(0))
	assert.Equal(t, "512", formatMemory(512))
	assert.Equal(t, "128Mi", formatMemory(128*mebibyte))
	assert.Equal(t, "129Mi", formatMemory(128*mebibyte+1))
	assert.Equal(t, "2Gi", formatMemory(2048*mebibyte))
	assert.Equal(t, "N/A", formatMemory(math.Inf(1)))
	assert.Equal(t, "N/A", formatCPU(math.NaN()))
	assert.Equal(t, "0.33", formatCPU(0.33000000000000007))
}
