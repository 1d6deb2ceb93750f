package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/opscart/pod-sizing-optimizer/pkg/logging"
	"github.com/opscart/pod-sizing-optimizer/pkg/models"
	"github.com/opscart/pod-sizing-optimizer/pkg/telemetry"
	"github.com/prometheus/client_golang/api"
	promconfig "github.com/prometheus/common/config"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	metricsQueryPath = "/api/v2/metrics/query"
	authType         = "Api-Token"
	bodyPreviewLen   = 500
)

// DynatraceSource queries the Dynatrace metrics API v2
type DynatraceSource struct {
	client     api.Client
	endpoint   string
	normalizer *Normalizer
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

// NewDynatraceSource creates a client. logger and metrics may be nil.
func NewDynatraceSource(cfg Config, logger *slog.Logger, metrics *telemetry.Metrics) (*DynatraceSource, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	transport := promconfig.NewAuthorizationCredentialsRoundTripper(
		authType,
		promconfig.NewInlineSecret(cfg.APIToken),
		metrics.InstrumentRoundTripper(http.DefaultTransport),
	)

	client, err := api.NewClient(api.Config{
		Address: endpoint,
		Client:  &http.Client{Transport: transport, Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Dynatrace client: %w", err)
	}

	logger = logging.OrDiscard(logger)
	logger.Debug("dynatrace client initialized", "endpoint", endpoint)

	return &DynatraceSource{
		client:     client,
		endpoint:   endpoint,
		normalizer: NewNormalizer(logger, metrics),
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// RequestPage issues one GET against the metrics query endpoint
func (d *DynatraceSource) RequestPage(ctx context.Context, req PageRequest) (*MetricsResponse, error) {
	params := url.Values{}
	if req.NextPageKey != "" {
		params.Set("nextPageKey", req.NextPageKey)
	} else {
		params.Set("metricSelector", req.Selector)
		params.Set("from", "now-"+req.Window)
		params.Set("resolution", req.Resolution)
	}

	u := d.client.URL(metricsQueryPath, nil)
	u.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	d.logger.Debug("dynatrace api request start",
		"selector", req.Selector,
		"from", req.Window,
		"resolution", req.Resolution,
		"next_page_key_present", req.NextPageKey != "",
	)

	resp, body, err := d.client.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("dynatrace request failed: %w", err)
	}
	elapsed := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Debug("dynatrace api request failed",
			"status", resp.StatusCode,
			"elapsed", elapsed,
			"body_preview", preview(body),
		)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload MetricsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode metrics response: %w", err)
	}

	d.metrics.ObservePage()
	d.logger.Debug("dynatrace api request end",
		"status", resp.StatusCode,
		"elapsed", elapsed,
		"results", len(payload.Result),
		"series", payload.SeriesCount(),
		"next_page_key", payload.NextPageKey,
	)
	return &payload, nil
}

// QuerySelector follows nextPageKey until the backend stops returning one
func (d *DynatraceSource) QuerySelector(ctx context.Context, selector, window string, filter Filter) ([]models.Observation, error) {
	var rows []models.Observation
	err := d.paginate(ctx, PageRequest{
		Selector:   selector,
		Window:     window,
		Resolution: ResolutionFor(window),
	}, func(page *MetricsResponse) {
		pageRows, _ := d.normalizer.NormalizePage(page, filter)
		rows = append(rows, pageRows...)
	})
	if err != nil {
		return nil, err
	}

	d.logger.Debug("selector query end", "selector", selector, "rows", len(rows))
	return rows, nil
}

// DiscoverNamespaces lists the namespaces visible to the token, sorted
func (d *DynatraceSource) DiscoverNamespaces(ctx context.Context, window string) ([]string, error) {
	found := sets.New[string]()
	rule := DimensionRule{
		ExactKeys:  NamespaceRule.ExactKeys[:1],
		KeyNeedles: NamespaceRule.KeyNeedles,
		Fallback: func(dims *Dimensions) (string, bool) {
			if len(dims.Positional) > 0 && dims.Positional[0] != "" {
				return dims.Positional[0], true
			}
			return "", false
		},
	}

	err := d.paginate(ctx, PageRequest{
		Selector:   DiscoverySelector,
		Window:     window,
		Resolution: ResolutionInf,
	}, func(page *MetricsResponse) {
		for i := range page.Result {
			for j := range page.Result[i].Data {
				if ns := rule.Resolve(NewDimensions(&page.Result[i].Data[j])); ns != "" {
					found.Insert(ns)
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	namespaces := found.UnsortedList()
	sort.Strings(namespaces)
	d.logger.Debug("namespace discovery end", "namespaces", len(namespaces))
	return namespaces, nil
}

// paginate requests pages sequentially; each request needs the previous key
func (d *DynatraceSource) paginate(ctx context.Context, req PageRequest, handle func(*MetricsResponse)) error {
	for page := 1; ; page++ {
		resp, err := d.RequestPage(ctx, req)
		if err != nil {
			return err
		}
		handle(resp)

		d.logger.Debug("pagination step", "selector", req.Selector, "page", page, "next_page_key", resp.NextPageKey)
		if resp.NextPageKey == "" {
			return nil
		}
		req.NextPageKey = resp.NextPageKey
	}
}

func preview(body []byte) string {
	if len(body) > bodyPreviewLen {
		return string(body[:bodyPreviewLen])
	}
	return string(body)
}
