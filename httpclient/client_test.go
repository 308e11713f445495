package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"
)

func TestExtractEndpoint(t *testing.T) {
	tests := map[string]string{
		"/v2/applications.json":                  "applications",
		"/v2/applications/123.json":              "application",
		"/v2/applications/123/metrics/data.json": "metrics",
		"/":                                      "root",
		"/v2":                                    "root",
		"/topic":                                 "topic",
	}

	for path, want := range tests {
		if got := extractEndpoint(path); got != want {
			t.Errorf("extractEndpoint(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestInstrumentedTransportObserves(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "test_request_duration_seconds",
		Help: "test",
	}, []string{"endpoint", "status", "method"})

	client := NewHTTPClientWithOptions(WithInstrumentation(histogram))
	resp, err := client.Get(server.URL + "/v2/applications.json")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if n := testutil.CollectAndCount(histogram); n != 1 {
		t.Fatalf("expected 1 observed series, got %d", n)
	}
}

func TestRateLimitedTransportHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// one token, refilled once per hour
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	client := &http.Client{Transport: NewRateLimitedTransport(http.DefaultTransport, limiter)}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	if _, err := client.Do(req); err == nil {
		t.Fatalf("expected second request to be rejected by the limiter")
	}
}
