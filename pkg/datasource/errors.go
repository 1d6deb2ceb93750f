package datasource

import (
	"fmt"
	"strings"

	"github.com/opscart/pod-sizing-optimizer/pkg/models"
)

// APIError is returned for any non-2xx metrics API response. It is never retried.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Dynatrace API error %d: %s", e.StatusCode, e.Body)
}

// Attempt records why one selector did not produce data
type Attempt struct {
	Selector string
	// Err is nil when the selector succeeded but matched no series.
	Err error
}

// Reason renders the failure for aggregated messages
func (a Attempt) Reason() string {
	if a.Err == nil {
		return "no matching data"
	}
	return a.Err.Error()
}

// SelectorExhaustedError is returned when no candidate selector produced data
type SelectorExhaustedError struct {
	MetricType models.MetricType
	Attempts   []Attempt
}

func (e *SelectorExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.Selector, a.Reason()))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("no selector configured for %s", e.MetricType)
	}
	return fmt.Sprintf("no usable Dynatrace selector for %s. Attempts: %s", e.MetricType, strings.Join(parts, " | "))
}

// Unwrap exposes the per-attempt errors to errors.Is and errors.As
func (e *SelectorExhaustedError) Unwrap() []error {
	var errs []error
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// NamespaceEmptyError is returned by namespace-scoped queries when one
// namespace yields no rows and the empty-namespace policy is fail
type NamespaceEmptyError struct {
	MetricType models.MetricType
	Namespace  string
	Selector   string
	Tags       []string
}

func (e *NamespaceEmptyError) Error() string {
	msg := fmt.Sprintf("no usable Dynatrace selector for %s in namespace %s. Attempt: %s", e.MetricType, e.Namespace, e.Selector)
	if len(e.Tags) > 0 {
		msg += ", tags: " + strings.Join(e.Tags, ",")
	}
	return msg
}
