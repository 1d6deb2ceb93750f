package models

import "strings"

// WorkloadKind represents the Kubernetes controller kind owning a workload
type WorkloadKind string

const (
	KindDeployment  WorkloadKind = "deployment"
	KindStatefulSet WorkloadKind = "statefulset"
	KindDaemonSet   WorkloadKind = "daemonset"
	KindCronJob     WorkloadKind = "cronjob"
	KindJob         WorkloadKind = "job"
	KindOther       WorkloadKind = "other"
)

// ParseWorkloadKind normalizes free-form kind text into a WorkloadKind.
// Order matters: "cronjob" must be tested before "job".
func ParseWorkloadKind(s string) WorkloadKind {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(normalized, "deployment"):
		return KindDeployment
	case strings.Contains(normalized, "stateful"):
		return KindStatefulSet
	case strings.Contains(normalized, "daemon"):
		return KindDaemonSet
	case strings.Contains(normalized, "cron"):
		return KindCronJob
	case normalized == "job":
		return KindJob
	}
	return KindOther
}

// MetricType is a logical metric queried from the backend
type MetricType string

const (
	MetricCPUUsage      MetricType = "cpuUsage"
	MetricMemoryUsage   MetricType = "memoryUsage"
	MetricCPURequest    MetricType = "cpuRequest"
	MetricMemoryRequest MetricType = "memoryRequest"
	MetricPodCount      MetricType = "podCount"
)

// AllMetricTypes lists every metric type in aggregation order
var AllMetricTypes = []MetricType{
	MetricCPUUsage,
	MetricMemoryUsage,
	MetricCPURequest,
	MetricMemoryRequest,
	MetricPodCount,
}

// Observation is one normalized time series
type Observation struct {
	Namespace string
	Workload  string
	Kind      WorkloadKind
	Values    []float64
}

// MetricSet holds the observations of every metric type for one run
type MetricSet map[MetricType][]Observation

// WorkloadMetrics holds the merged sample streams of a single workload
type WorkloadMetrics struct {
	Namespace string
	Workload  string
	Kind      WorkloadKind

	CPUUsage      []float64
	MemoryUsage   []float64
	CPURequest    []float64
	MemoryRequest []float64
	PodCount      []float64
}

// Series returns the sample stream for a metric type
func (w *WorkloadMetrics) Series(metric MetricType) *[]float64 {
	switch metric {
	case MetricCPUUsage:
		return &w.CPUUsage
	case MetricMemoryUsage:
		return &w.MemoryUsage
	case MetricCPURequest:
		return &w.CPURequest
	case MetricMemoryRequest:
		return &w.MemoryRequest
	case MetricPodCount:
		return &w.PodCount
	}
	return nil
}
