package workflow

import (
	"fmt"
	"os"
	"time"
)

// Config bounds execution and step durations. Values are Go duration strings.
type Config struct {
	Timeout       string       `toml:"timeout"`
	NotifyTimeout string       `toml:"notify_timeout"`
	StepTimeouts  StepTimeouts `toml:"step_timeouts"`
}

// StepTimeouts bounds individual task states.
type StepTimeouts struct {
	Sentiment string `toml:"sentiment"`
	Deletion  string `toml:"deletion"`
	Notify    string `toml:"notify"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Timeout       string
	NotifyTimeout string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.NotifyTimeout != "" {
		c.NotifyTimeout = overlay.NotifyTimeout
	}
	if overlay.StepTimeouts.Sentiment != "" {
		c.StepTimeouts.Sentiment = overlay.StepTimeouts.Sentiment
	}
	if overlay.StepTimeouts.Deletion != "" {
		c.StepTimeouts.Deletion = overlay.StepTimeouts.Deletion
	}
	if overlay.StepTimeouts.Notify != "" {
		c.StepTimeouts.Notify = overlay.StepTimeouts.Notify
	}
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// NotifyTimeoutDuration returns NotifyTimeout as a time.Duration.
func (c *Config) NotifyTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.NotifyTimeout)
	return d
}

// StepTimeout returns the timeout for the named pipeline state, or zero.
func (c *Config) StepTimeout(state string) time.Duration {
	var raw string
	switch state {
	case StateSentiment:
		raw = c.StepTimeouts.Sentiment
	case StateDeletion:
		raw = c.StepTimeouts.Deletion
	case StateSuccessNotify, StateErrorNotify:
		raw = c.StepTimeouts.Notify
	}
	d, _ := time.ParseDuration(raw)
	return d
}

func (c *Config) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "30m"
	}
	if c.NotifyTimeout == "" {
		c.NotifyTimeout = "15s"
	}
	if c.StepTimeouts.Sentiment == "" {
		c.StepTimeouts.Sentiment = "5m"
	}
	if c.StepTimeouts.Deletion == "" {
		c.StepTimeouts.Deletion = "30s"
	}
	if c.StepTimeouts.Notify == "" {
		c.StepTimeouts.Notify = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.NotifyTimeout != "" {
		if v := os.Getenv(env.NotifyTimeout); v != "" {
			c.NotifyTimeout = v
		}
	}
}

func (c *Config) validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"timeout", c.Timeout},
		{"notify_timeout", c.NotifyTimeout},
		{"step_timeouts.sentiment", c.StepTimeouts.Sentiment},
		{"step_timeouts.deletion", c.StepTimeouts.Deletion},
		{"step_timeouts.notify", c.StepTimeouts.Notify},
	}

	for _, f := range fields {
		d, err := time.ParseDuration(f.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", f.name)
		}
	}
	return nil
}
