package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/timgluz/nrwatch/alert"
	"github.com/timgluz/nrwatch/bus"
	"github.com/timgluz/nrwatch/newrelic"
	"github.com/timgluz/nrwatch/ntfy"
	"github.com/timgluz/nrwatch/registry"
	"github.com/timgluz/nrwatch/scheduler"
	"github.com/timgluz/nrwatch/server"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultInterval  = 15 * time.Minute

	EnvLogLevel    = "NRWATCH_LOG_LEVEL"
	EnvStoreDriver = "NRWATCH_STORE_DRIVER"
	EnvStoreDSN    = "NRWATCH_STORE_DSN"
	EnvNATSURL     = "NRWATCH_NATS_URL"
	EnvAdminListen = "NRWATCH_ADMIN_LISTEN"
)

type Config struct {
	LogLevel   string `json:"log_level" yaml:"log_level"`
	LogFormat  string `json:"log_format" yaml:"log_format"`
	DotEnvPath string `json:"dotenv_path" yaml:"dotenv_path"`

	// Interval between two polls of the same application.
	Interval string `json:"interval" yaml:"interval"`

	NewRelic   newrelic.Config      `json:"newrelic" yaml:"newrelic"`
	Thresholds alert.Thresholds     `json:"thresholds" yaml:"thresholds"`
	Ntfy       ntfy.Config          `json:"ntfy" yaml:"ntfy"`
	NATS       bus.Config           `json:"nats" yaml:"nats"`
	Store      registry.StoreConfig `json:"store" yaml:"store"`
	Admin      server.Config        `json:"admin" yaml:"admin"`
	Scheduler  scheduler.Config     `json:"scheduler" yaml:"scheduler"`
}

// ValidationError is a configuration error for a single field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid config %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Load reads path (JSON or YAML by extension), loads the .env file, applies
// environment overrides and defaults, then validates. An empty path yields
// the defaults. dotEnvPath, when set, wins over the config file setting.
func Load(path, dotEnvPath string) (Config, error) {
	var config Config

	if path != "" {
		var err error
		config, err = decodeFile(path)
		if err != nil {
			return config, err
		}
	}

	if dotEnvPath != "" {
		config.DotEnvPath = dotEnvPath
	}

	if config.DotEnvPath != "" {
		if err := godotenv.Load(config.DotEnvPath); err != nil {
			return config, fmt.Errorf("load .env file %s: %w", config.DotEnvPath, err)
		}
	}

	config.ApplyEnvOverrides()
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

func decodeFile(path string) (Config, error) {
	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&config); err != nil {
			return config, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(content))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&config); err != nil {
			return config, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	return config, nil
}

func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}

	if v := os.Getenv(EnvStoreDriver); v != "" {
		c.Store.Driver = v
	}

	if v := os.Getenv(EnvStoreDSN); v != "" {
		c.Store.DSN = v
	}

	if v := os.Getenv(EnvNATSURL); v != "" {
		c.NATS.URL = v
	}

	if v := os.Getenv(EnvAdminListen); v != "" {
		c.Admin.Listen = v
	}
}

func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}

	if c.Interval == "" {
		c.Interval = DefaultInterval.String()
	}

	c.NewRelic.ApplyDefaults()
	c.Thresholds.ApplyDefaults()
	c.Ntfy.ApplyDefaults()
	c.NATS.ApplyDefaults()
	c.Store.ApplyDefaults()
	c.Admin.ApplyDefaults()
	c.Scheduler.ApplyDefaults()
}

// PollInterval returns the parsed interval; call after Validate.
func (c Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return DefaultInterval
	}
	return d
}

func (c Config) Validate() error {
	var errs []error

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, &ValidationError{Field: "log_format", Reason: "must be text or json"})
	}

	if d, err := time.ParseDuration(c.Interval); err != nil {
		errs = append(errs, &ValidationError{Field: "interval", Reason: "not a duration", Err: err})
	} else if d <= 0 {
		errs = append(errs, &ValidationError{Field: "interval", Reason: "must be positive"})
	}

	if u, err := url.Parse(c.NewRelic.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, &ValidationError{Field: "newrelic.endpoint", Reason: "must be an absolute URL", Err: err})
	}

	if c.NewRelic.RequestsPerMinute < 0 {
		errs = append(errs, &ValidationError{Field: "newrelic.requests_per_minute", Reason: "must not be negative"})
	}

	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, &ValidationError{Field: "thresholds", Reason: "invalid rule", Err: err})
	}

	if err := c.Store.Validate(); err != nil {
		errs = append(errs, &ValidationError{Field: "store", Reason: "invalid store", Err: err})
	}

	if _, err := time.ParseDuration(c.Scheduler.RunTimeout); err != nil {
		errs = append(errs, &ValidationError{Field: "scheduler.run_timeout", Reason: "not a duration", Err: err})
	}

	return errors.Join(errs...)
}

// CheckCredentials fails when the New Relic API key variable is unset.
func (c Config) CheckCredentials() error {
	if os.Getenv(c.NewRelic.APIKeyEnv) == "" {
		return &ValidationError{
			Field:  "newrelic.api_key_env",
			Reason: fmt.Sprintf("environment variable %s is not set", c.NewRelic.APIKeyEnv),
			Err:    newrelic.ErrMissingAPIKey,
		}
	}
	return nil
}
