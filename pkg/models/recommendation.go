package models

// ProvisioningStatus classifies usage against the current request
type ProvisioningStatus string

const (
	StatusOverProvisioned  ProvisioningStatus = "over-provisioned"
	StatusUnderProvisioned ProvisioningStatus = "under-provisioned"
	StatusBalanced         ProvisioningStatus = "balanced"
	StatusUnknown          ProvisioningStatus = "unknown"
)

// ReplicaAction is the suggested change to a workload's replica count
type ReplicaAction string

const (
	ReplicaScaleDown     ReplicaAction = "scale-down"
	ReplicaScaleUp       ReplicaAction = "scale-up"
	ReplicaKeep          ReplicaAction = "keep"
	ReplicaNotApplicable ReplicaAction = "n/a"
)

// WorkloadRecommendation represents the sizing decision for one workload
type WorkloadRecommendation struct {
	Namespace string       `json:"namespace"`
	Workload  string       `json:"workload"`
	Kind      WorkloadKind `json:"workloadKind"`

	// Observed usage at the configured percentile
	PCPUUsage    float64 `json:"pCpuUsage"`
	PMemoryUsage float64 `json:"pMemoryUsage"`

	// Current state
	CurrentCPURequest    float64 `json:"currentCpuRequest"`
	CurrentMemoryRequest float64 `json:"currentMemoryRequest"`
	CurrentReplicas      int     `json:"currentReplicas"`

	// Recommended state
	RecommendedCPURequest    float64 `json:"recommendedCpuRequest"`
	RecommendedMemoryRequest float64 `json:"recommendedMemoryRequest"`
	RecommendedReplicas      int     `json:"recommendedReplicas"`

	// Analysis
	CPUUtilization    float64            `json:"cpuUtilizationVsRequest"`
	MemoryUtilization float64            `json:"memoryUtilizationVsRequest"`
	CPUStatus         ProvisioningStatus `json:"cpuStatus"`
	MemoryStatus      ProvisioningStatus `json:"memoryStatus"`
	ReplicaAction     ReplicaAction      `json:"replicaAction"`
	CPUPattern        string             `json:"cpuUsagePattern"`
}

// LowUtilization reports whether either resource is over-provisioned
func (r *WorkloadRecommendation) LowUtilization() bool {
	return r.CPUStatus == StatusOverProvisioned || r.MemoryStatus == StatusOverProvisioned
}

// NamespaceSummary aggregates recommendations sharing a namespace
type NamespaceSummary struct {
	Namespace             string  `json:"namespace"`
	WorkloadCount         int     `json:"workloadCount"`
	OverProvisionedCount  int     `json:"overProvisionedCount"`
	UnderProvisionedCount int     `json:"underProvisionedCount"`
	TotalCPUWaste         float64 `json:"totalCpuWaste"`
	TotalMemoryWaste      float64 `json:"totalMemoryWaste"`
}

// TotalWaste is the combined reclaimable capacity used for ranking
func (s *NamespaceSummary) TotalWaste() float64 {
	return s.TotalCPUWaste + s.TotalMemoryWaste
}
