package ntfy

import (
	"context"
	"fmt"
	"os"
)

type TokenCredentialProvider interface {
	Retrieve(ctx context.Context) (string, error)
}

type TokenCredentialEnvProvider struct {
	envVar string
}

func NewTokenCredentialEnvProvider(envVar string) *TokenCredentialEnvProvider {
	return &TokenCredentialEnvProvider{
		envVar: envVar,
	}
}

func (p *TokenCredentialEnvProvider) Retrieve(ctx context.Context) (string, error) {
	token := os.Getenv(p.envVar)
	if token == "" {
		return "", fmt.Errorf("environment variable %s must be set", p.envVar)
	}

	return token, nil
}

// TokenFromEnv returns a provider only when the variable is present, so
// public topics work without a token.
func TokenFromEnv(envVar string) TokenCredentialProvider {
	if envVar == "" {
		return nil
	}

	if _, ok := os.LookupEnv(envVar); !ok {
		return nil
	}

	return NewTokenCredentialEnvProvider(envVar)
}
