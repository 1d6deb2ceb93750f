package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// GenerateCSV creates a CSV report
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := []string{
		"Namespace",
		"Workload",
		"Kind",
		fmt.Sprintf("CPU p%d", report.Percentile),
		"CPU Request",
		"CPU Recommended",
		"CPU Status",
		fmt.Sprintf("Memory p%d", report.Percentile),
		"Memory Request",
		"Memory Recommended",
		"Memory Status",
		"Replicas",
		"Recommended Replicas",
		"Replica Action",
		"CPU Pattern",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range report.Visible() {
		row := []string{
			rec.Namespace,
			rec.Workload,
			string(rec.Kind),
			formatCPU(rec.PCPUUsage),
			formatCPU(rec.CurrentCPURequest),
			formatCPU(rec.RecommendedCPURequest),
			string(rec.CPUStatus),
			formatMemory(rec.PMemoryUsage),
			formatMemory(rec.CurrentMemoryRequest),
			formatMemory(rec.RecommendedMemoryRequest),
			string(rec.MemoryStatus),
			strconv.Itoa(rec.CurrentReplicas),
			strconv.Itoa(rec.RecommendedReplicas),
			string(rec.ReplicaAction),
			rec.CPUPattern,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	// Summary rows
	rows := [][]string{
		{},
		{"SUMMARY"},
		{"Run ID", report.RunID},
		{"Time Window", report.Window},
		{"Window Start", report.WindowStart.Format(time.RFC3339)},
		{"Percentile", fmt.Sprintf("p%d", report.Percentile)},
		{"Total Workloads", strconv.Itoa(report.WorkloadCount)},
		{"Low Utilization", strconv.Itoa(report.LowUtilizationCount)},
		{},
		{"NAMESPACE SUMMARY"},
		{"Namespace", "Workloads", "Over-Provisioned", "Under-Provisioned", "CPU Waste", "Memory Waste"},
	}
	for _, s := range report.Summaries {
		rows = append(rows, []string{
			s.Namespace,
			strconv.Itoa(s.WorkloadCount),
			strconv.Itoa(s.OverProvisionedCount),
			strconv.Itoa(s.UnderProvisionedCount),
			formatCPU(s.TotalCPUWaste),
			formatMemory(s.TotalMemoryWaste),
		})
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV summary: %w", err)
	}
	return nil
}
