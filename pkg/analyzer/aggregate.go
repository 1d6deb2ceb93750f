package analyzer

import (
	"log/slog"
	"sort"

	"github.com/opscart/pod-sizing-optimizer/pkg/logging"
	"github.com/opscart/pod-sizing-optimizer/pkg/models"
)

type workloadKey struct {
	namespace string
	workload  string
}

// MergeMetrics merges the per-type observation lists into one record per
// (namespace, workload). Streams are visited in models.AllMetricTypes order
// and the first observation to create a key fixes its kind. Values are
// concatenated, never averaged. Output is sorted by namespace then workload.
func MergeMetrics(set models.MetricSet, logger *slog.Logger) []models.WorkloadMetrics {
	logger = logging.OrDiscard(logger)

	merged := make(map[workloadKey]*models.WorkloadMetrics)
	for _, metric := range models.AllMetricTypes {
		for _, obs := range set[metric] {
			key := workloadKey{namespace: obs.Namespace, workload: obs.Workload}
			wm, ok := merged[key]
			if !ok {
				wm = &models.WorkloadMetrics{
					Namespace: obs.Namespace,
					Workload:  obs.Workload,
					Kind:      obs.Kind,
				}
				merged[key] = wm
			} else if obs.Kind != wm.Kind {
				logger.Debug("kind conflict ignored",
					"namespace", obs.Namespace,
					"workload", obs.Workload,
					"kept", wm.Kind,
					"ignored", obs.Kind,
					"metric_type", metric,
				)
			}

			series := wm.Series(metric)
			*series = append(*series, obs.Values...)
		}
	}

	out := make([]models.WorkloadMetrics, 0, len(merged))
	for _, wm := range merged {
		out = append(out, *wm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Workload < out[j].Workload
	})
	return out
}
