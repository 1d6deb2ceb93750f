package recommender

import (
	"log/slog"
	"math"
	"sort"

	"github.com/opscart/pod-sizing-optimizer/pkg/analyzer"
	"github.com/opscart/pod-sizing-optimizer/pkg/config"
	"github.com/opscart/pod-sizing-optimizer/pkg/logging"
	"github.com/opscart/pod-sizing-optimizer/pkg/models"
)

// minCPUPerPod keeps the replica estimate finite when the recommended request is zero
const minCPUPerPod = 1e-9

// Thresholds holds the utilization bounds of one resource
type Thresholds struct {
	Over  float64
	Under float64
}

type Recommender struct {
	percentile      float64
	cpuHeadroom     float64
	memoryHeadroom  float64
	cpu             Thresholds
	memory          Thresholds
	minReplicaFloor int
	logger          *slog.Logger
}

// New creates a recommender from validated configuration. logger may be nil.
func New(cfg *config.Config, logger *slog.Logger) *Recommender {
	return &Recommender{
		percentile:      float64(cfg.Percentile),
		cpuHeadroom:     cfg.CPUHeadroomMultiplier,
		memoryHeadroom:  math.Max(config.MinMemoryHeadroom, cfg.MemoryHeadroomMultiplier),
		cpu:             Thresholds{Over: cfg.CPUOverProvisionedThreshold, Under: cfg.CPUUnderProvisionedThreshold},
		memory:          Thresholds{Over: cfg.MemoryOverProvisionedThreshold, Under: cfg.MemoryUnderProvisionedThreshold},
		minReplicaFloor: cfg.MinReplicaFloor,
		logger:          logging.OrDiscard(logger),
	}
}

// Recommend sizes every workload. Output is sorted by namespace then workload.
func (r *Recommender) Recommend(workloads []models.WorkloadMetrics) []models.WorkloadRecommendation {
	recs := make([]models.WorkloadRecommendation, 0, len(workloads))
	for i := range workloads {
		recs = append(recs, r.Analyze(&workloads[i]))
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Namespace != recs[j].Namespace {
			return recs[i].Namespace < recs[j].Namespace
		}
		return recs[i].Workload < recs[j].Workload
	})
	return recs
}

// Analyze derives the recommendation of a single workload
func (r *Recommender) Analyze(wm *models.WorkloadMetrics) models.WorkloadRecommendation {
	pCPU := analyzer.Percentile(wm.CPUUsage, r.percentile)
	pMemory := analyzer.Percentile(wm.MemoryUsage, r.percentile)
	cpuRequest := analyzer.Mean(wm.CPURequest)
	memoryRequest := analyzer.Mean(wm.MemoryRequest)
	currentReplicas := max(1, int(math.Round(analyzer.Mean(wm.PodCount))))

	rec := models.WorkloadRecommendation{
		Namespace:                wm.Namespace,
		Workload:                 wm.Workload,
		Kind:                     wm.Kind,
		PCPUUsage:                pCPU,
		PMemoryUsage:             pMemory,
		CurrentCPURequest:        cpuRequest,
		CurrentMemoryRequest:     memoryRequest,
		CurrentReplicas:          currentReplicas,
		RecommendedCPURequest:    pCPU * r.cpuHeadroom,
		RecommendedMemoryRequest: pMemory * r.memoryHeadroom,
		CPUUtilization:           utilization(pCPU, cpuRequest),
		MemoryUtilization:        utilization(pMemory, memoryRequest),
		CPUPattern:               string(analyzer.AnalyzeUsagePattern(wm.CPUUsage).Type),
	}
	rec.CPUStatus = ClassifyUtilization(rec.CPUUtilization, r.cpu.Over, r.cpu.Under)
	rec.MemoryStatus = ClassifyUtilization(rec.MemoryUtilization, r.memory.Over, r.memory.Under)
	rec.RecommendedReplicas, rec.ReplicaAction = r.replicas(wm.Kind, pCPU, rec.RecommendedCPURequest, currentReplicas)

	r.logger.Debug("workload analyzed",
		"namespace", rec.Namespace,
		"workload", rec.Workload,
		"kind", rec.Kind,
		"cpu_samples", len(wm.CPUUsage),
		"memory_samples", len(wm.MemoryUsage),
		"cpu_status", rec.CPUStatus,
		"memory_status", rec.MemoryStatus,
		"replica_action", rec.ReplicaAction,
	)
	return rec
}

// replicas estimates how many pods of the recommended size carry the
// observed load. Only deployments are scaled.
func (r *Recommender) replicas(kind models.WorkloadKind, pCPU, recommendedCPU float64, current int) (int, models.ReplicaAction) {
	if kind != models.KindDeployment {
		return current, models.ReplicaNotApplicable
	}

	perPod := math.Max(minCPUPerPod, recommendedCPU)
	load := pCPU * float64(current)
	supported := max(1, int(math.Ceil(load/perPod)))
	recommended := max(r.minReplicaFloor, supported)

	switch {
	case recommended < current:
		return recommended, models.ReplicaScaleDown
	case recommended > current:
		return recommended, models.ReplicaScaleUp
	}
	return recommended, models.ReplicaKeep
}

// utilization is usage over request; 0 when no request is set
func utilization(usage, request float64) float64 {
	if request <= 0 {
		return 0
	}
	return usage / request
}

// ClassifyUtilization maps a usage/request ratio to a provisioning status.
// Both bounds are exclusive so a ratio equal to a threshold is balanced.
func ClassifyUtilization(ratio, overThreshold, underThreshold float64) models.ProvisioningStatus {
	switch {
	case ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0):
		return models.StatusUnknown
	case ratio < overThreshold:
		return models.StatusOverProvisioned
	case ratio > underThreshold:
		return models.StatusUnderProvisioned
	}
	return models.StatusBalanced
}
