package datasource

import (
	"context"
	"time"

	"github.com/opscart/pod-sizing-optimizer/pkg/models"
)

// PageFetcher issues a single metrics query request
type PageFetcher interface {
	RequestPage(ctx context.Context, req PageRequest) (*MetricsResponse, error)
}

// SeriesQuerier runs a selector to exhaustion and returns normalized rows
type SeriesQuerier interface {
	QuerySelector(ctx context.Context, selector, window string, filter Filter) ([]models.Observation, error)
}

// Config configures the Dynatrace client
type Config struct {
	Endpoint string
	APIToken string
	// Timeout bounds a single HTTP request; zero leaves the transport default.
	Timeout time.Duration
}

// PageRequest describes one page of a metrics query. When NextPageKey is
// set the other fields are not sent: the key already encodes the query.
type PageRequest struct {
	Selector    string
	Window      string
	Resolution  string
	NextPageKey string
}

// MetricsResponse is the envelope returned by /api/v2/metrics/query
type MetricsResponse struct {
	TotalCount  int            `json:"totalCount,omitempty"`
	NextPageKey string         `json:"nextPageKey,omitempty"`
	Result      []MetricResult `json:"result"`
}

// MetricResult holds the series of one metric
type MetricResult struct {
	MetricID string   `json:"metricId"`
	Data     []Series `json:"data"`
}

// Series is one raw time series
type Series struct {
	Dimensions   []string          `json:"dimensions"`
	DimensionMap map[string]string `json:"dimensionMap,omitempty"`
	Timestamps   []int64           `json:"timestamps,omitempty"`
	Values       []*float64        `json:"values"`
}

// NumericValues drops null samples
func (s *Series) NumericValues() []float64 {
	out := make([]float64, 0, len(s.Values))
	for _, v := range s.Values {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// SeriesCount totals the series across all results of a page
func (r *MetricsResponse) SeriesCount() int {
	n := 0
	for _, result := range r.Result {
		n += len(result.Data)
	}
	return n
}

// ResolutionFor picks the sampling resolution for a time window
func ResolutionFor(window string) string {
	if len(window) > 0 && window[len(window)-1] == 'h' {
		return "1m"
	}
	return "5m"
}

// ResolutionInf collapses a series into a single aggregate value
const ResolutionInf = "Inf"
