package httpclient

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentedTransport wraps http.RoundTripper to measure request duration
type InstrumentedTransport struct {
	base      http.RoundTripper
	histogram *prometheus.HistogramVec
}

// NewInstrumentedTransport creates a transport that records metrics
func NewInstrumentedTransport(base http.RoundTripper, histogram *prometheus.HistogramVec) *InstrumentedTransport {
	return &InstrumentedTransport{
		base:      base,
		histogram: histogram,
	}
}

func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil {
		status = statusCategory(resp.StatusCode)
	}

	t.histogram.WithLabelValues(extractEndpoint(req.URL.Path), status, req.Method).Observe(duration)

	return resp, err
}

// extractEndpoint converts a New Relic REST path to a low-cardinality name:
//
//	/v2/applications.json                  -> "applications"
//	/v2/applications/123.json              -> "application"
//	/v2/applications/123/metrics/data.json -> "metrics"
func extractEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")

	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if isVersion(part) {
			continue
		}
		filtered = append(filtered, strings.TrimSuffix(part, ".json"))
	}

	if len(filtered) == 0 || filtered[0] == "" {
		return "root"
	}

	if len(filtered) == 1 {
		return filtered[0]
	}

	if isNumeric(filtered[1]) {
		if len(filtered) > 2 {
			return filtered[2]
		}
		return strings.TrimSuffix(filtered[0], "s")
	}

	return filtered[0]
}

func isVersion(part string) bool {
	return len(part) >= 2 && len(part) <= 3 && part[0] == 'v' && isNumeric(part[1:])
}

// statusCategory converts HTTP status code to category
func statusCategory(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "other"
	}
}

func isNumeric(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
