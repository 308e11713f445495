package bus

const (
	DefaultAlertSubject   = "nrwatch.alerts"
	DefaultCommandSubject = "nrwatch.commands"
	DefaultClientName     = "nrwatch"
)

// Config enables NATS integration when URL is set.
type Config struct {
	URL            string `json:"url" yaml:"url"`
	AlertSubject   string `json:"alert_subject" yaml:"alert_subject"`
	CommandSubject string `json:"command_subject" yaml:"command_subject"`
	ClientName     string `json:"client_name" yaml:"client_name"`
}

func (c *Config) ApplyDefaults() {
	if c.AlertSubject == "" {
		c.AlertSubject = DefaultAlertSubject
	}

	if c.CommandSubject == "" {
		c.CommandSubject = DefaultCommandSubject
	}

	if c.ClientName == "" {
		c.ClientName = DefaultClientName
	}
}

func (c Config) Enabled() bool {
	return c.URL != ""
}
