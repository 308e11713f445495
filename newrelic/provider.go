package newrelic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/timgluz/nrwatch/httpclient"
	"github.com/timgluz/nrwatch/metric"
)

const maxApplicationPages = 50

var ErrNoData = errors.New("new relic returned no metric data")

// APIError is returned for any non-2xx answer of the REST API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("new relic api %s failed with status code %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("new relic api %s failed with status code %d", e.Endpoint, e.StatusCode)
}

type Provider interface {
	// Ping checks that the endpoint is reachable and the key is accepted
	Ping(ctx context.Context) error
	ListApplications(ctx context.Context) ([]Application, error)
	Apdex(ctx context.Context, appID string) (float64, error)
	ErrorRate(ctx context.Context, appID string) (float64, error)
}

type HTTPProvider struct {
	config Config
	keys   APIKeyProvider

	client *http.Client
	logger *slog.Logger
}

// NewInstrumentedClient builds the HTTP client used against New Relic: it
// records request durations in registry and honours the configured quota.
func NewInstrumentedClient(config Config, registry *metric.Registry) *http.Client {
	histogram := registry.GetOrCreateHistogramVec(
		"newrelic_request_duration_seconds",
		"Duration of HTTP requests to the New Relic REST API",
		[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		[]string{"endpoint", "status", "method"},
	)

	return httpclient.NewHTTPClientWithOptions(
		httpclient.WithTimeout(config.Timeout()),
		httpclient.WithRateLimit(config.RequestsPerMinute, 5),
		httpclient.WithInstrumentation(histogram),
	)
}

func NewHTTPProvider(config Config, client *http.Client, keys APIKeyProvider, logger *slog.Logger) *HTTPProvider {
	return &HTTPProvider{
		config: config,
		keys:   keys,
		client: client,
		logger: logger,
	}
}

func (p *HTTPProvider) Ping(ctx context.Context) error {
	p.logger.Info("Pinging the New Relic API endpoint")

	var list applicationList
	query := url.Values{}
	query.Set("page", "1")
	if _, err := p.getJSON(ctx, p.endpoint("applications.json"), query, &list); err != nil {
		return err
	}

	p.logger.Info("Ping successful")
	return nil
}

// ListApplications returns every application of the account in the order
// the API reports them, following pagination links.
func (p *HTTPProvider) ListApplications(ctx context.Context) ([]Application, error) {
	next := p.endpoint("applications.json")
	apps := make([]Application, 0)

	for page := 0; next != "" && page < maxApplicationPages; page++ {
		var list applicationList
		header, err := p.getJSON(ctx, next, nil, &list)
		if err != nil {
			return nil, err
		}

		apps = append(apps, list.Applications...)
		next = nextLink(header.Get("Link"))
	}

	if next != "" {
		p.logger.Warn("Application listing truncated at page limit", "pages", maxApplicationPages, "count", len(apps), "next", next)
	}

	p.logger.Debug("Fetched applications", "count", len(apps))
	return apps, nil
}

// Apdex returns the average apdex score reported over the default window.
func (p *HTTPProvider) Apdex(ctx context.Context, appID string) (float64, error) {
	query := url.Values{}
	query.Add("names[]", "Apdex")
	query.Add("values[]", "score")
	query.Set("summarize", "true")

	var data metricData
	endpoint := p.endpoint("applications", url.PathEscape(appID), "metrics", "data.json")
	if _, err := p.getJSON(ctx, endpoint, query, &data); err != nil {
		return 0, err
	}

	sum, count := 0.0, 0
	for _, m := range data.MetricData.Metrics {
		for _, slice := range m.Timeslices {
			if score, ok := slice.Values["score"]; ok {
				sum += score
				count++
			}
		}
	}

	if count == 0 {
		return 0, fmt.Errorf("%w: apdex for application %s", ErrNoData, appID)
	}

	return sum / float64(count), nil
}

// ErrorRate returns the error rate of the application summary.
func (p *HTTPProvider) ErrorRate(ctx context.Context, appID string) (float64, error) {
	var envelope applicationEnvelope
	endpoint := p.endpoint("applications", url.PathEscape(appID)+".json")
	if _, err := p.getJSON(ctx, endpoint, nil, &envelope); err != nil {
		return 0, err
	}

	return envelope.Application.Summary.ErrorRate, nil
}

func (p *HTTPProvider) endpoint(elem ...string) string {
	base := strings.TrimRight(p.config.Endpoint, "/") + "/" + p.config.APIVersion
	return base + "/" + strings.Join(elem, "/")
}

func (p *HTTPProvider) getJSON(ctx context.Context, endpoint string, query url.Values, out any) (http.Header, error) {
	if p.client == nil {
		return nil, fmt.Errorf("http client is not initialized")
	}

	key, err := p.keys.Retrieve(ctx)
	if err != nil {
		return nil, err
	}

	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-Api-Key", key)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   req.URL.Path,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(content, out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}

	return resp.Header, nil
}

// nextLink extracts the rel="next" target of an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}

		for _, param := range segments[1:] {
			if strings.ReplaceAll(strings.TrimSpace(param), " ", "") == `rel="next"` {
				return strings.Trim(target, "<>")
			}
		}
	}

	return ""
}
