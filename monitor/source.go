package monitor

import (
	"context"
	"fmt"

	"github.com/timgluz/nrwatch/newrelic"
)

// Entity is a monitored New Relic application.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Source interface {
	ListEntities(ctx context.Context) ([]Entity, error)
	Apdex(ctx context.Context, id string) (float64, error)
	ErrorRate(ctx context.Context, id string) (float64, error)
}

// ProviderError reports a failed metrics source call.
type ProviderError struct {
	Op       string
	EntityID string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("provider %s for %s: %v", e.Op, e.EntityID, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type NewRelicSource struct {
	provider newrelic.Provider
}

func NewNewRelicSource(provider newrelic.Provider) *NewRelicSource {
	return &NewRelicSource{provider: provider}
}

func (s *NewRelicSource) ListEntities(ctx context.Context) ([]Entity, error) {
	apps, err := s.provider.ListApplications(ctx)
	if err != nil {
		return nil, err
	}

	entities := make([]Entity, 0, len(apps))
	for _, app := range apps {
		entities = append(entities, Entity{ID: app.IDString(), Name: app.Name})
	}
	return entities, nil
}

func (s *NewRelicSource) Apdex(ctx context.Context, id string) (float64, error) {
	return s.provider.Apdex(ctx, id)
}

func (s *NewRelicSource) ErrorRate(ctx context.Context, id string) (float64, error) {
	return s.provider.ErrorRate(ctx, id)
}
