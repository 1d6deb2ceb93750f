package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/opscart/pod-sizing-optimizer/pkg/logging"
	"github.com/opscart/pod-sizing-optimizer/pkg/models"
	"github.com/opscart/pod-sizing-optimizer/pkg/telemetry"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"
)

// AcquireOptions controls how metric types are fetched
type AcquireOptions struct {
	Window     string
	Namespaces []string
	Tags       []string
	// ScopeByNamespace runs one query per namespace with a namespace filter
	// appended to the selector. It is forced on when any tag survives parsing.
	ScopeByNamespace bool
	// SkipEmptyNamespaces tolerates namespaces without rows in scoped mode.
	// When false a single empty namespace fails the whole metric type.
	SkipEmptyNamespaces bool
}

// Acquirer drives selector fallback and namespace scoping per metric type
type Acquirer struct {
	querier  SeriesQuerier
	registry Registry
	opts     AcquireOptions
	allowed  sets.Set[string]
	tags     []TagPredicate
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewAcquirer creates an orchestrator. logger and metrics may be nil.
func NewAcquirer(querier SeriesQuerier, registry Registry, opts AcquireOptions, logger *slog.Logger, metrics *telemetry.Metrics) *Acquirer {
	return &Acquirer{
		querier:  querier,
		registry: registry,
		opts:     opts,
		allowed:  sets.New(opts.Namespaces...),
		tags:     ParseTagPredicates(opts.Tags),
		metrics:  metrics,
		logger:   logging.OrDiscard(logger),
	}
}

// scoped reports whether queries run once per namespace. Blank tags do not count.
func (a *Acquirer) scoped() bool {
	return a.opts.ScopeByNamespace || len(a.tags) > 0
}

// fallbackState is the state of one metric type's selector walk
type fallbackState int

const (
	statePending fallbackState = iota
	stateSuccess
	stateExhausted
)

// selectorFallback walks candidate selectors in order until one yields rows
type selectorFallback struct {
	metric   models.MetricType
	pending  []string
	attempts []Attempt
	rows     []models.Observation
	state    fallbackState
}

func newSelectorFallback(metric models.MetricType, selectors []string) *selectorFallback {
	f := &selectorFallback{metric: metric, pending: append([]string(nil), selectors...)}
	if len(f.pending) == 0 {
		f.state = stateExhausted
	}
	return f
}

// next pops the next selector to try
func (f *selectorFallback) next() (string, bool) {
	if f.state != statePending {
		return "", false
	}
	selector := f.pending[0]
	f.pending = f.pending[1:]
	return selector, true
}

// record applies the outcome of one attempt and returns the new state
func (f *selectorFallback) record(selector string, rows []models.Observation, err error) fallbackState {
	switch {
	case err == nil && len(rows) > 0:
		f.rows = rows
		f.state = stateSuccess
	default:
		f.attempts = append(f.attempts, Attempt{Selector: selector, Err: err})
		if len(f.pending) == 0 {
			f.state = stateExhausted
		}
	}
	return f.state
}

func (f *selectorFallback) err() error {
	return &SelectorExhaustedError{MetricType: f.metric, Attempts: f.attempts}
}

// Acquire returns the observations of one metric type from the first
// selector that produces any
func (a *Acquirer) Acquire(ctx context.Context, metric models.MetricType) ([]models.Observation, error) {
	a.logger.Debug("metric query start", "metric_type", metric, "scoped", a.scoped(), "tags", a.opts.Tags)

	fb := newSelectorFallback(metric, a.registry.Selectors(metric))
	for {
		selector, ok := fb.next()
		if !ok {
			break
		}

		rows, err := a.attempt(ctx, metric, selector)
		var nsErr *NamespaceEmptyError
		if errors.As(err, &nsErr) {
			a.metrics.ObserveAttempt(string(metric), telemetry.AttemptEmpty)
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		switch fb.record(selector, rows, err) {
		case stateSuccess:
			a.metrics.ObserveAttempt(string(metric), telemetry.AttemptSuccess)
			a.logger.Debug("metric query success", "metric_type", metric, "selector", selector, "rows", len(rows))
			return fb.rows, nil
		default:
			outcome := telemetry.AttemptEmpty
			if err != nil {
				outcome = telemetry.AttemptError
			}
			a.metrics.ObserveAttempt(string(metric), outcome)
			a.logger.Debug("selector attempt failed", "metric_type", metric, "selector", selector, "error", err)
		}
	}

	return nil, fb.err()
}

// attempt runs one selector, either globally or once per namespace
func (a *Acquirer) attempt(ctx context.Context, metric models.MetricType, selector string) ([]models.Observation, error) {
	if !a.scoped() {
		return a.querier.QuerySelector(ctx, selector, a.opts.Window, Filter{
			Namespaces: a.allowed,
			Tags:       a.tags,
		})
	}

	var all []models.Observation
	for _, ns := range a.opts.Namespaces {
		scoped := NamespaceScoped(selector, ns)
		rows, err := a.querier.QuerySelector(ctx, scoped, a.opts.Window, Filter{
			Namespaces: sets.New(ns),
			Tags:       a.tags,
		})
		if err != nil {
			return nil, fmt.Errorf("namespace %s: %w", ns, err)
		}

		if len(rows) == 0 {
			if !a.opts.SkipEmptyNamespaces {
				return nil, &NamespaceEmptyError{MetricType: metric, Namespace: ns, Selector: selector, Tags: a.opts.Tags}
			}
			a.logger.Warn("namespace returned no rows, skipping", "metric_type", metric, "namespace", ns, "selector", selector)
			continue
		}

		a.logger.Debug("namespace query success", "metric_type", metric, "namespace", ns, "rows", len(rows))
		all = append(all, rows...)
	}
	return all, nil
}

// AcquireAll fetches every metric type concurrently. The first failure
// cancels the others and no partial result is returned.
func (a *Acquirer) AcquireAll(ctx context.Context) (models.MetricSet, error) {
	results := make([][]models.Observation, len(models.AllMetricTypes))

	g, gctx := errgroup.WithContext(ctx)
	for i, metric := range models.AllMetricTypes {
		g.Go(func() error {
			rows, err := a.Acquire(gctx, metric)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := make(models.MetricSet, len(results))
	for i, metric := range models.AllMetricTypes {
		set[metric] = results[i]
	}
	return set, nil
}
