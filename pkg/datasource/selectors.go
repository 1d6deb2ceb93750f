package datasource

import (
	"fmt"
	"strings"

	"github.com/opscart/pod-sizing-optimizer/pkg/models"
)

const workloadSplit = `:splitBy("k8s.namespace.name","k8s.workload.name","k8s.workload.kind"):avg`

// NamespaceDimension is the dimension used to scope selectors to one namespace
const NamespaceDimension = "k8s.namespace.name"

// DiscoverySelector lists every namespace reporting pods
const DiscoverySelector = `builtin:kubernetes.workload.pods:splitBy("k8s.namespace.name"):avg`

// Registry maps a metric type to its candidate selectors in priority order
type Registry map[models.MetricType][]string

// DefaultRegistry returns the built-in selectors. The second entry of the
// usage types covers environments that only expose container-level metrics.
func DefaultRegistry() Registry {
	return Registry{
		models.MetricCPUUsage: {
			"builtin:kubernetes.workload.cpu_usage" + workloadSplit,
			"builtin:containers.cpu.usagePercent" + workloadSplit,
		},
		models.MetricMemoryUsage: {
			"builtin:kubernetes.workload.memory_working_set" + workloadSplit,
			"builtin:containers.memory.residentMemoryBytes" + workloadSplit,
		},
		models.MetricCPURequest: {
			"builtin:kubernetes.workload.requests_cpu" + workloadSplit,
		},
		models.MetricMemoryRequest: {
			"builtin:kubernetes.workload.requests_memory" + workloadSplit,
		},
		models.MetricPodCount: {
			"builtin:kubernetes.workload.pods" + workloadSplit,
		},
	}
}

// WithOverrides returns a copy of r where each overridden metric type uses
// the given selectors instead of the built-in list
func (r Registry) WithOverrides(overrides map[models.MetricType][]string) Registry {
	out := make(Registry, len(r))
	for metric, selectors := range r {
		out[metric] = append([]string(nil), selectors...)
	}
	for metric, selectors := range overrides {
		if len(selectors) > 0 {
			out[metric] = append([]string(nil), selectors...)
		}
	}
	return out
}

// Selectors returns the candidates for a metric type
func (r Registry) Selectors(metric models.MetricType) []string {
	return r[metric]
}

// NamespaceScoped appends an equality filter on the namespace dimension
func NamespaceScoped(selector, namespace string) string {
	escaped := strings.ReplaceAll(namespace, `"`, `\"`)
	return fmt.Sprintf(`%s:filter(eq("%s","%s"))`, selector, NamespaceDimension, escaped)
}
