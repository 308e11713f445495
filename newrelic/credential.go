package newrelic

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var ErrMissingAPIKey = errors.New("new relic api key is not set")

type APIKeyProvider interface {
	Retrieve(ctx context.Context) (string, error)
}

type APIKeyEnvProvider struct {
	envVar string
}

func NewAPIKeyEnvProvider(envVar string) *APIKeyEnvProvider {
	return &APIKeyEnvProvider{
		envVar: envVar,
	}
}

func (p *APIKeyEnvProvider) Retrieve(ctx context.Context) (string, error) {
	key := os.Getenv(p.envVar)
	if key == "" {
		return "", fmt.Errorf("%w: environment variable %s must be set", ErrMissingAPIKey, p.envVar)
	}

	return key, nil
}

// StaticAPIKey is mostly useful in tests.
type StaticAPIKey string

func (k StaticAPIKey) Retrieve(ctx context.Context) (string, error) {
	if k == "" {
		return "", ErrMissingAPIKey
	}
	return string(k), nil
}
