package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opscart/pod-sizing-optimizer/pkg/config"
	"github.com/opscart/pod-sizing-optimizer/pkg/models"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatHTML ReportFormat = "html"
	FormatCSV  ReportFormat = "csv"
	FormatJSON ReportFormat = "json"
)

// ParseFormat validates a format name. An empty name picks the format from
// the output file extension and falls back to HTML.
func ParseFormat(name, outputPath string) (ReportFormat, error) {
	if name == "" {
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".csv":
			return FormatCSV, nil
		case ".json":
			return FormatJSON, nil
		}
		return FormatHTML, nil
	}

	switch f := ReportFormat(strings.ToLower(name)); f {
	case FormatHTML, FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want html, csv or json)", name)
}

// Filter selects which workload rows a report shows
type Filter string

const (
	FilterAll            Filter = "all"
	FilterLowUtilization Filter = "low-utilization"
)

// ParseFilter validates a filter name
func ParseFilter(name string) (Filter, error) {
	switch f := Filter(name); f {
	case FilterAll, FilterLowUtilization:
		return f, nil
	case "":
		return FilterAll, nil
	}
	return "", fmt.Errorf("unknown filter %q (want all or low-utilization)", name)
}

// Report contains all data for generating reports
type Report struct {
	RunID          string    `json:"runId"`
	GeneratedAt    time.Time `json:"generatedAt"`
	Window         string    `json:"timeWindow"`
	WindowStart    time.Time `json:"windowStart"`
	Namespaces     []string  `json:"namespaces"`
	Tags           []string  `json:"tags,omitempty"`
	Percentile     int       `json:"percentile"`
	CPUHeadroom    float64   `json:"cpuHeadroomMultiplier"`
	MemoryHeadroom float64   `json:"memoryHeadroomMultiplier"`
	Filter         Filter    `json:"filter"`

	Recommendations []models.WorkloadRecommendation `json:"recommendations"`
	Summaries       []models.NamespaceSummary       `json:"namespaceSummary"`

	WorkloadCount       int     `json:"workloadCount"`
	LowUtilizationCount int     `json:"lowUtilizationCount"`
	TotalCPUWaste       float64 `json:"totalCpuWaste"`
	TotalMemoryWaste    float64 `json:"totalMemoryWaste"`

	// Config is the resolved configuration; the API token is redacted on output.
	Config *config.Config `json:"config"`
}

// Visible returns the rows the filter keeps
func (r *Report) Visible() []models.WorkloadRecommendation {
	if r.Filter != FilterLowUtilization {
		return r.Recommendations
	}
	out := make([]models.WorkloadRecommendation, 0, len(r.Recommendations))
	for i := range r.Recommendations {
		if r.Recommendations[i].LowUtilization() {
			out = append(out, r.Recommendations[i])
		}
	}
	return out
}

// Reporter generates sizing reports
type Reporter struct {
	format ReportFormat
	filter Filter
}

// New creates a new reporter
func New(format ReportFormat, filter Filter) *Reporter {
	return &Reporter{
		format: format,
		filter: filter,
	}
}

// Generate assembles a report from recommendations and namespace summaries
func (r *Reporter) Generate(cfg *config.Config, recs []models.WorkloadRecommendation, summaries []models.NamespaceSummary) *Report {
	report := &Report{
		RunID:           uuid.NewString(),
		GeneratedAt:     time.Now().UTC(),
		Window:          cfg.TimeWindow,
		Namespaces:      cfg.Namespaces,
		Tags:            cfg.Tags,
		Percentile:      cfg.Percentile,
		CPUHeadroom:     cfg.CPUHeadroomMultiplier,
		MemoryHeadroom:  cfg.EffectiveMemoryHeadroom(),
		Filter:          r.filter,
		Recommendations: recs,
		Summaries:       summaries,
		Config:          cfg,
	}

	report.WindowStart = report.GeneratedAt.Add(-cfg.WindowDuration())
	r.calculateStats(report)
	return report
}

// calculateStats computes the headline numbers of the report
func (r *Reporter) calculateStats(report *Report) {
	report.WorkloadCount = len(report.Recommendations)
	for i := range report.Recommendations {
		if report.Recommendations[i].LowUtilization() {
			report.LowUtilizationCount++
		}
	}
	for _, s := range report.Summaries {
		report.TotalCPUWaste += s.TotalCPUWaste
		report.TotalMemoryWaste += s.TotalMemoryWaste
	}
}

// Write renders the report in the configured format
func (r *Reporter) Write(report *Report, w io.Writer) error {
	switch r.format {
	case FormatCSV:
		return GenerateCSV(report, w)
	case FormatJSON:
		return GenerateJSON(report, w)
	default:
		return GenerateHTML(report, w)
	}
}

// WriteFile renders the report to path, creating parent directories, and
// returns the absolute path written
func (r *Reporter) WriteFile(report *Report, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if err := r.Write(report, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report file: %w", err)
	}
	return abs, nil
}
