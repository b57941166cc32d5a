package notify

import (
	"fmt"
	"os"
	"strings"
)

// Supported notification backends.
const (
	BackendSNS    = "sns"
	BackendResend = "resend"
	BackendLog    = "log"
)

// Config selects the notification backend.
// Topic, Region, and Endpoint apply to SNS; Topic may be an ARN or a topic name.
// APIKey and From apply to Resend, which mails every subscriber directly.
type Config struct {
	Backend       string   `toml:"backend"`
	Topic         string   `toml:"topic"`
	Region        string   `toml:"region"`
	Endpoint      string   `toml:"endpoint"`
	APIKey        string   `toml:"api_key"`
	From          string   `toml:"from"`
	Subscribers   []string `toml:"subscribers"`
	SubjectPrefix string   `toml:"subject_prefix"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend       string
	Topic         string
	Region        string
	Endpoint      string
	APIKey        string
	From          string
	Subscribers   string
	SubjectPrefix string
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
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.Topic != "" {
		c.Topic = overlay.Topic
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.From != "" {
		c.From = overlay.From
	}
	if len(overlay.Subscribers) > 0 {
		c.Subscribers = overlay.Subscribers
	}
	if overlay.SubjectPrefix != "" {
		c.SubjectPrefix = overlay.SubjectPrefix
	}
}

// SuccessSubject is the subject of the success notification.
func (c *Config) SuccessSubject() string {
	return c.SubjectPrefix + " Success"
}

// ErrorSubject is the subject of the error notification.
func (c *Config) ErrorSubject() string {
	return c.SubjectPrefix + " Error"
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSNS
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "Osenchi"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}
	if env.Topic != "" {
		if v := os.Getenv(env.Topic); v != "" {
			c.Topic = v
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
	if env.APIKey != "" {
		if v := os.Getenv(env.APIKey); v != "" {
			c.APIKey = v
		}
	}
	if env.From != "" {
		if v := os.Getenv(env.From); v != "" {
			c.From = v
		}
	}
	if env.Subscribers != "" {
		if v := os.Getenv(env.Subscribers); v != "" {
			c.Subscribers = strings.Split(v, ",")
		}
	}
	if env.SubjectPrefix != "" {
		if v := os.Getenv(env.SubjectPrefix); v != "" {
			c.SubjectPrefix = v
		}
	}
}

func (c *Config) validate() error {
	if err := ValidateSubscribers(c.Subscribers); err != nil {
		return err
	}

	switch c.Backend {
	case BackendSNS:
		if c.Topic == "" {
			return fmt.Errorf("topic required")
		}
	case BackendResend:
		if c.APIKey == "" {
			return fmt.Errorf("api_key required")
		}
		if c.From == "" {
			return fmt.Errorf("from required")
		}
		if len(c.Subscribers) == 0 {
			return fmt.Errorf("at least one subscriber required")
		}
	case BackendLog:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	return nil
}
