package recommender

import (
	"math"
	"sort"

	"github.com/opscart/pod-sizing-optimizer/pkg/models"
)

// SummarizeByNamespace rolls recommendations up per namespace, most
// reclaimable capacity first. Ties are ordered by namespace name.
func SummarizeByNamespace(recs []models.WorkloadRecommendation) []models.NamespaceSummary {
	byNamespace := make(map[string]*models.NamespaceSummary)
	for i := range recs {
		rec := &recs[i]
		s, ok := byNamespace[rec.Namespace]
		if !ok {
			s = &models.NamespaceSummary{Namespace: rec.Namespace}
			byNamespace[rec.Namespace] = s
		}

		s.WorkloadCount++
		if rec.CPUStatus == models.StatusOverProvisioned || rec.MemoryStatus == models.StatusOverProvisioned {
			s.OverProvisionedCount++
		}
		if rec.CPUStatus == models.StatusUnderProvisioned || rec.MemoryStatus == models.StatusUnderProvisioned {
			s.UnderProvisionedCount++
		}
		s.TotalCPUWaste += math.Max(0, rec.CurrentCPURequest-rec.PCPUUsage)
		s.TotalMemoryWaste += math.Max(0, rec.CurrentMemoryRequest-rec.PMemoryUsage)
	}

	summaries := make([]models.NamespaceSummary, 0, len(byNamespace))
	for _, s := range byNamespace {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		wi, wj := summaries[i].TotalWaste(), summaries[j].TotalWaste()
		if wi != wj {
			return wi > wj
		}
		return summaries[i].Namespace < summaries[j].Namespace
	})
	return summaries
}
