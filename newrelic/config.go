package newrelic

import "time"

const (
	DefaultAPIKeyEnv = "NEWRELIC_API_KEY" // #nosec G101 -- This is an environment variable name, not a credential

	DefaultEndpoint   = "https://api.newrelic.com"
	DefaultAPIVersion = "v2"

	DefaultRequestsPerMinute = 60
	DefaultRequestTimeout    = 30 * time.Second
)

type Config struct {
	Endpoint   string `json:"endpoint" yaml:"endpoint"`
	APIVersion string `json:"api_version" yaml:"api_version"`

	// APIKeyEnv names the environment variable holding the REST API key.
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env"`

	RequestsPerMinute int    `json:"requests_per_minute" yaml:"requests_per_minute"`
	RequestTimeout    string `json:"request_timeout" yaml:"request_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}

	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}

	if c.APIKeyEnv == "" {
		c.APIKeyEnv = DefaultAPIKeyEnv
	}

	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}

	if c.RequestTimeout == "" {
		c.RequestTimeout = DefaultRequestTimeout.String()
	}
}

// Timeout returns the parsed request timeout, falling back to the default
// when the configured value does not parse.
func (c Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return DefaultRequestTimeout
	}
	return d
}
