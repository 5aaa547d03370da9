// Separate package is workaround to import cycles.
package vend_config

import (
	"time"

	"github.com/aquavend/vmc/helpers"
)

const (
	DefaultCommandTimeout  = 1 * time.Second
	DefaultPollInterval    = 200 * time.Millisecond
	DefaultMaxPollAttempts = 30
)

type Config struct {
	CommandTimeoutMs int `hcl:"command_timeout_ms"`
	PollIntervalMs   int `hcl:"poll_interval_ms"`
	MaxPollAttempts  int `hcl:"max_poll_attempts"`
}

func (c *Config) CommandTimeout() time.Duration {
	return helpers.IntMillisecondDefault(c.CommandTimeoutMs, DefaultCommandTimeout)
}

func (c *Config) PollInterval() time.Duration {
	return helpers.IntMillisecondDefault(c.PollIntervalMs, DefaultPollInterval)
}

func (c *Config) PollAttempts() int {
	if c.MaxPollAttempts == 0 {
		return DefaultMaxPollAttempts
	}
	return c.MaxPollAttempts
}
