package scheduler

import "time"

const (
	DefaultWorkers    = 4
	DefaultQueueSize  = 128
	DefaultRunTimeout = time.Minute
)

type Config struct {
	Workers    int    `json:"workers" yaml:"workers"`
	QueueSize  int    `json:"queue_size" yaml:"queue_size"`
	RunTimeout string `json:"run_timeout" yaml:"run_timeout"`
	// ImmediateFirstRun fires every job once right after it is registered
	// instead of waiting a full interval.
	ImmediateFirstRun *bool `json:"immediate_first_run" yaml:"immediate_first_run"`
}

func (c *Config) ApplyDefaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}

	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}

	if c.RunTimeout == "" {
		c.RunTimeout = DefaultRunTimeout.String()
	}

	if c.ImmediateFirstRun == nil {
		immediate := true
		c.ImmediateFirstRun = &immediate
	}
}

func (c Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RunTimeout)
	if err != nil || d <= 0 {
		return DefaultRunTimeout
	}
	return d
}

func (c Config) Immediate() bool {
	return c.ImmediateFirstRun == nil || *c.ImmediateFirstRun
}
