package jobs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/osenchi/pkg/formatting"
	"github.com/JaimeStill/osenchi/pkg/retry"
)

// Config holds pipeline parameters. Bucket names default from ServiceName.
type Config struct {
	ServiceName      string      `toml:"service_name"`
	SourceBucket     string      `toml:"source_bucket"`
	DestBucket       string      `toml:"dest_bucket"`
	MaxObjectSize    string      `toml:"max_object_size"`
	GroupConcurrency int         `toml:"group_concurrency"`
	Retry            RetryConfig `toml:"retry"`
}

// RetryConfig bounds the per-group classification retry loop.
type RetryConfig struct {
	MaxAttempts int    `toml:"max_attempts"`
	Initial     string `toml:"initial"`
	Max         string `toml:"max"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ServiceName      string
	SourceBucket     string
	DestBucket       string
	MaxObjectSize    string
	GroupConcurrency string
	RetryMaxAttempts string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		c.loadEnv(env)
	}
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
	if overlay.SourceBucket != "" {
		c.SourceBucket = overlay.SourceBucket
	}
	if overlay.DestBucket != "" {
		c.DestBucket = overlay.DestBucket
	}
	if overlay.MaxObjectSize != "" {
		c.MaxObjectSize = overlay.MaxObjectSize
	}
	if overlay.GroupConcurrency > 0 {
		c.GroupConcurrency = overlay.GroupConcurrency
	}
	if overlay.Retry.MaxAttempts > 0 {
		c.Retry.MaxAttempts = overlay.Retry.MaxAttempts
	}
	if overlay.Retry.Initial != "" {
		c.Retry.Initial = overlay.Retry.Initial
	}
	if overlay.Retry.Max != "" {
		c.Retry.Max = overlay.Retry.Max
	}
}

// ResourceName derives a lower-cased resource name from the service name.
func (c *Config) ResourceName(suffix string) string {
	return strings.ToLower(c.ServiceName + "-" + suffix)
}

// MaxObjectBytes returns MaxObjectSize in bytes.
func (c *Config) MaxObjectBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxObjectSize)
	return n
}

// RetryPolicy returns the retry bounds for group classification.
func (c *Config) RetryPolicy() retry.Policy {
	initial, _ := time.ParseDuration(c.Retry.Initial)
	maxSleep, _ := time.ParseDuration(c.Retry.Max)
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		Initial:     initial,
		Max:         maxSleep,
		JitterFrac:  0.2,
	}
}

func (c *Config) loadDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "osenchi"
	}
	if c.SourceBucket == "" {
		c.SourceBucket = c.ResourceName("input")
	}
	if c.DestBucket == "" {
		c.DestBucket = c.ResourceName("output")
	}
	if c.MaxObjectSize == "" {
		c.MaxObjectSize = "64MB"
	}
	if c.GroupConcurrency <= 0 {
		c.GroupConcurrency = 4
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.Initial == "" {
		c.Retry.Initial = "200ms"
	}
	if c.Retry.Max == "" {
		c.Retry.Max = "5s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ServiceName != "" {
		if v := os.Getenv(env.ServiceName); v != "" {
			c.ServiceName = v
		}
	}
	if env.SourceBucket != "" {
		if v := os.Getenv(env.SourceBucket); v != "" {
			c.SourceBucket = v
		}
	}
	if env.DestBucket != "" {
		if v := os.Getenv(env.DestBucket); v != "" {
			c.DestBucket = v
		}
	}
	if env.MaxObjectSize != "" {
		if v := os.Getenv(env.MaxObjectSize); v != "" {
			c.MaxObjectSize = v
		}
	}
	if env.GroupConcurrency != "" {
		if v := os.Getenv(env.GroupConcurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.GroupConcurrency = n
			}
		}
	}
	if env.RetryMaxAttempts != "" {
		if v := os.Getenv(env.RetryMaxAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Retry.MaxAttempts = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.DestBucket == "" {
		return fmt.Errorf("dest_bucket required")
	}
	if n, err := formatting.ParseBytes(c.MaxObjectSize); err != nil {
		return fmt.Errorf("invalid max_object_size: %w", err)
	} else if n <= 0 {
		return fmt.Errorf("max_object_size must be positive")
	}
	if _, err := time.ParseDuration(c.Retry.Initial); err != nil {
		return fmt.Errorf("invalid retry.initial: %w", err)
	}
	if _, err := time.ParseDuration(c.Retry.Max); err != nil {
		return fmt.Errorf("invalid retry.max: %w", err)
	}
	return nil
}
