package ntfy

const (
	DefaultNtfyEndpoint    = "https://ntfy.sh"
	DefaultNtfyTokenEnvVar = "NTFY_TOKEN" // #nosec G101 -- This is an environment variable name, not a credential
	DefaultNtfyPriority    = 4
)

// Config describes the ntfy destination. An empty topic disables ntfy delivery.
type Config struct {
	Endpoint string   `json:"endpoint" yaml:"endpoint"`
	Topic    string   `json:"topic" yaml:"topic"`
	TokenEnv string   `json:"token_env" yaml:"token_env"`
	Priority int      `json:"priority" yaml:"priority"`
	Tags     []string `json:"tags" yaml:"tags"`
	Markdown *bool    `json:"markdown" yaml:"markdown"`
}

func DefaultNtfyConfig() Config {
	markdown := true
	return Config{
		Endpoint: DefaultNtfyEndpoint,
		TokenEnv: DefaultNtfyTokenEnvVar,
		Priority: DefaultNtfyPriority,
		Tags:     []string{"warning"},
		Markdown: &markdown,
	}
}

func (c *Config) ApplyDefaults() {
	defaults := DefaultNtfyConfig()

	if c.Endpoint == "" {
		c.Endpoint = defaults.Endpoint
	}

	if c.TokenEnv == "" {
		c.TokenEnv = defaults.TokenEnv
	}

	if c.Priority == 0 {
		c.Priority = defaults.Priority
	}

	if c.Tags == nil {
		c.Tags = defaults.Tags
	}

	if c.Markdown == nil {
		c.Markdown = defaults.Markdown
	}
}

func (c Config) Enabled() bool {
	return c.Topic != ""
}

func (c Config) MarkdownEnabled() bool {
	return c.Markdown != nil && *c.Markdown
}
