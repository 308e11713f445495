package httpclient

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitedTransport blocks each request until the limiter grants a token
// or the request context is done.
type RateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func NewRateLimitedTransport(base http.RoundTripper, limiter *rate.Limiter) *RateLimitedTransport {
	return &RateLimitedTransport{
		base:    base,
		limiter: limiter,
	}
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	return t.base.RoundTrip(req)
}
