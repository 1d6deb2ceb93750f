package datasource

import (
	"log/slog"
	"strings"

	"github.com/opscart/pod-sizing-optimizer/pkg/logging"
	"github.com/opscart/pod-sizing-optimizer/pkg/models"
	"github.com/opscart/pod-sizing-optimizer/pkg/telemetry"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Unknown is the value of an attribute no rule could resolve
const Unknown = "unknown"

// SkipReason explains why a series produced no observation
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipNoValues  SkipReason = "no-values"
	SkipNamespace SkipReason = "namespace"
	SkipTags      SkipReason = "tags"
)

// Filter restricts which series become observations
type Filter struct {
	// Namespaces is the allow-list; a series outside it is skipped.
	Namespaces sets.Set[string]
	Tags       []TagPredicate
}

// Dimensions is the resolution view over one series. Namespace and Workload
// are filled in as the rules run so later rules can refer to them.
type Dimensions struct {
	Map        map[string]string
	Positional []string

	Namespace string
	Workload  string

	keys []string
}

// NewDimensions builds the view for a series
func NewDimensions(s *Series) *Dimensions {
	m := s.DimensionMap
	if m == nil {
		m = map[string]string{}
	}
	return &Dimensions{Map: m, Positional: s.Dimensions, keys: sortedKeys(m)}
}

func (d *Dimensions) exact(key string) (string, bool) {
	v, ok := d.Map[key]
	return v, ok && v != ""
}

// byNeedle returns the value of the first key, in sorted order, containing needle
func (d *Dimensions) byNeedle(needle string) (string, bool) {
	for _, k := range d.keys {
		if strings.Contains(strings.ToLower(k), needle) && d.Map[k] != "" {
			return d.Map[k], true
		}
	}
	return "", false
}

// DimensionRule resolves one attribute: exact keys first, then keys
// containing a needle, then the fallback, then the default.
type DimensionRule struct {
	ExactKeys  []string
	KeyNeedles []string
	Fallback   func(d *Dimensions) (string, bool)
	Default    string
}

// Resolve evaluates the rule against d
func (r DimensionRule) Resolve(d *Dimensions) string {
	for _, key := range r.ExactKeys {
		if v, ok := d.exact(key); ok {
			return v
		}
	}
	for _, needle := range r.KeyNeedles {
		if v, ok := d.byNeedle(needle); ok {
			return v
		}
	}
	if r.Fallback != nil {
		if v, ok := r.Fallback(d); ok {
			return v
		}
	}
	return r.Default
}

// NamespaceRule resolves the namespace of a series
var NamespaceRule = DimensionRule{
	ExactKeys:  []string{"k8s.namespace.name", "dt.entity.cloud_application_namespace.name"},
	KeyNeedles: []string{"namespace"},
	Default:    Unknown,
}

// WorkloadRule resolves the workload name of a series
var WorkloadRule = DimensionRule{
	ExactKeys: []string{
		"k8s.workload.name",
		"dt.entity.cloud_application.name",
		"k8s.deployment.name",
		"k8s.statefulset.name",
	},
	KeyNeedles: []string{"workload", "cloud_application"},
	Fallback:   firstPositionalNotNamespace,
	Default:    Unknown,
}

// KindRule resolves the workload kind of a series
var KindRule = DimensionRule{
	ExactKeys:  []string{"k8s.workload.kind"},
	KeyNeedles: []string{"kind"},
	Fallback:   inferKind,
	Default:    string(models.KindOther),
}

func firstPositionalNotNamespace(d *Dimensions) (string, bool) {
	for _, v := range d.Positional {
		if v != "" && v != d.Namespace {
			return v, true
		}
	}
	return "", false
}

// kindHints is checked in order; "cron" must precede "job"
var kindHints = []struct {
	hint string
	kind models.WorkloadKind
}{
	{"deployment", models.KindDeployment},
	{"stateful", models.KindStatefulSet},
	{"daemon", models.KindDaemonSet},
	{"cron", models.KindCronJob},
	{"job", models.KindJob},
}

func inferKind(d *Dimensions) (string, bool) {
	parts := make([]string, 0, 2*len(d.keys)+1)
	parts = append(parts, d.Workload)
	parts = append(parts, d.keys...)
	for _, k := range d.keys {
		parts = append(parts, d.Map[k])
	}
	blob := strings.ToLower(strings.Join(parts, " "))

	for _, h := range kindHints {
		if strings.Contains(blob, h.hint) {
			return string(h.kind), true
		}
	}
	return "", false
}

// NormalizeStats counts the outcome of normalizing one page
type NormalizeStats struct {
	Emitted          int
	SkippedNoValues  int
	SkippedNamespace int
	SkippedTags      int
}

func (s *NormalizeStats) add(reason SkipReason) {
	switch reason {
	case SkipNone:
		s.Emitted++
	case SkipNoValues:
		s.SkippedNoValues++
	case SkipNamespace:
		s.SkippedNamespace++
	case SkipTags:
		s.SkippedTags++
	}
}

// Normalizer turns raw series into observations
type Normalizer struct {
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewNormalizer creates a normalizer. Both arguments may be nil.
func NewNormalizer(logger *slog.Logger, metrics *telemetry.Metrics) *Normalizer {
	return &Normalizer{logger: logging.OrDiscard(logger), metrics: metrics}
}

// Normalize converts one series, or reports why it was skipped
func (n *Normalizer) Normalize(s *Series, f Filter) (models.Observation, SkipReason) {
	values := s.NumericValues()
	if len(values) == 0 {
		return models.Observation{}, SkipNoValues
	}

	d := NewDimensions(s)
	d.Namespace = NamespaceRule.Resolve(d)
	if !f.Namespaces.Has(d.Namespace) {
		return models.Observation{}, SkipNamespace
	}

	d.Workload = WorkloadRule.Resolve(d)
	kind := models.ParseWorkloadKind(KindRule.Resolve(d))

	if !MatchTags(d.Map, f.Tags) {
		return models.Observation{}, SkipTags
	}

	return models.Observation{
		Namespace: d.Namespace,
		Workload:  d.Workload,
		Kind:      kind,
		Values:    values,
	}, SkipNone
}

// NormalizePage converts every series of a response
func (n *Normalizer) NormalizePage(resp *MetricsResponse, f Filter) ([]models.Observation, NormalizeStats) {
	var (
		out   []models.Observation
		stats NormalizeStats
	)
	for i := range resp.Result {
		for j := range resp.Result[i].Data {
			obs, reason := n.Normalize(&resp.Result[i].Data[j], f)
			stats.add(reason)
			if reason == SkipNone {
				out = append(out, obs)
			}
		}
	}

	n.metrics.ObserveSeries(telemetry.SeriesEmitted, stats.Emitted)
	n.metrics.ObserveSeries(telemetry.SeriesSkippedNoValues, stats.SkippedNoValues)
	n.metrics.ObserveSeries(telemetry.SeriesSkippedNamespace, stats.SkippedNamespace)
	n.metrics.ObserveSeries(telemetry.SeriesSkippedTags, stats.SkippedTags)

	n.logger.Debug("page normalized",
		"results", len(resp.Result),
		"rows", stats.Emitted,
		"skipped_no_values", stats.SkippedNoValues,
		"skipped_namespace", stats.SkippedNamespace,
		"skipped_tags", stats.SkippedTags,
	)
	return out, stats
}
