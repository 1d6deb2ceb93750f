package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/opscart/pod-sizing-optimizer/pkg/models"
)

// jsonReport narrows the recommendations to the filtered rows
type jsonReport struct {
	*Report
	Recommendations []models.WorkloadRecommendation `json:"recommendations"`
}

// GenerateJSON writes the report as indented JSON
func GenerateJSON(report *Report, writer io.Writer) error {
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{Report: report, Recommendations: report.Visible()}); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}
