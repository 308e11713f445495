package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// NewDefaultHTTPClient creates an HTTP client with timeouts suited for
// polling a remote REST API every few minutes.
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,

			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,

			// one upstream host, a handful of concurrent poll workers
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// ClientOption is a function that configures an HTTP client
type ClientOption func(*http.Client)

// WithTimeout sets the overall request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *http.Client) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithInstrumentation records request durations in histogram. The histogram
// must carry the labels endpoint, status and method.
func WithInstrumentation(histogram *prometheus.HistogramVec) ClientOption {
	return func(c *http.Client) {
		if histogram == nil {
			return
		}
		c.Transport = NewInstrumentedTransport(baseTransport(c), histogram)
	}
}

// WithRateLimit caps outgoing requests to perMinute, with bursts up to burst.
// A non-positive perMinute disables limiting.
func WithRateLimit(perMinute int, burst int) ClientOption {
	return func(c *http.Client) {
		if perMinute <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
		c.Transport = NewRateLimitedTransport(baseTransport(c), limiter)
	}
}

// NewHTTPClientWithOptions creates an HTTP client with options pattern.
// Options wrap the transport in the order given, so the last option is the
// outermost round tripper.
func NewHTTPClientWithOptions(opts ...ClientOption) *http.Client {
	client := NewDefaultHTTPClient()

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func baseTransport(c *http.Client) http.RoundTripper {
	if c.Transport == nil {
		return http.DefaultTransport
	}
	return c.Transport
}
