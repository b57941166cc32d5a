package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Supported storage providers.
const (
	ProviderS3     = "s3"
	ProviderAzure  = "azure"
	ProviderMemory = "memory"
)

// Config holds object storage connection parameters.
// Region, Endpoint, and ForcePathStyle apply to S3; ConnectionString applies to Azure.
// Buckets lists the buckets probed at startup.
type Config struct {
	Provider         string   `toml:"provider"`
	Region           string   `toml:"region"`
	Endpoint         string   `toml:"endpoint"`
	ForcePathStyle   bool     `toml:"force_path_style"`
	ConnectionString string   `toml:"connection_string"`
	Buckets          []string `toml:"buckets"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	Region           string
	Endpoint         string
	ForcePathStyle   string
	ConnectionString string
	Buckets          string
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
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.ForcePathStyle {
		c.ForcePathStyle = true
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if len(overlay.Buckets) > 0 {
		c.Buckets = overlay.Buckets
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderS3
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Provider != "" {
		if v := os.Getenv(env.Provider); v != "" {
			c.Provider = v
		}
	}
	if env.Region != "" {
		if v := os.Getenv(env.Region); v != "" {
			c.Region = v
		}
	}
	if env.Endpoint != "" {
		if v := os.Getenv(env.Endpoint); v != "" {
			c.Endpoint = v
		}
	}
	if env.ForcePathStyle != "" {
		if v := os.Getenv(env.ForcePathStyle); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.ForcePathStyle = b
			}
		}
	}
	if env.ConnectionString != "" {
		if v := os.Getenv(env.ConnectionString); v != "" {
			c.ConnectionString = v
		}
	}
	if env.Buckets != "" {
		if v := os.Getenv(env.Buckets); v != "" {
			c.Buckets = splitList(v)
		}
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderS3:
		if c.Region == "" {
			return fmt.Errorf("region required")
		}
	case ProviderAzure:
		if c.ConnectionString == "" {
			return fmt.Errorf("connection_string required")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
