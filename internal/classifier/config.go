package classifier

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/osenchi/internal/records"
)

// Supported detectors.
const (
	DetectorComprehend = "comprehend"
	DetectorGemini     = "gemini"
	DetectorOpenAI     = "openai"
	DetectorStatic     = "static"
)

// Config selects and tunes the sentiment service.
// Region applies to Comprehend; Model, APIKey, and BaseURL apply to the LLM detectors;
// StaticSentiment applies to the static detector.
type Config struct {
	Detector        string  `toml:"detector"`
	Concurrency     int     `toml:"concurrency"`
	RateLimitRPS    float64 `toml:"rate_limit_rps"`
	ScorePolicy     string  `toml:"score_policy"`
	Region          string  `toml:"region"`
	Model           string  `toml:"model"`
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	StaticSentiment string  `toml:"static_sentiment"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Detector        string
	Concurrency     string
	RateLimitRPS    string
	ScorePolicy     string
	Region          string
	Model           string
	APIKey          string
	BaseURL         string
	StaticSentiment string
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
	if overlay.Detector != "" {
		c.Detector = overlay.Detector
	}
	if overlay.Concurrency > 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.RateLimitRPS != 0 {
		c.RateLimitRPS = overlay.RateLimitRPS
	}
	if overlay.ScorePolicy != "" {
		c.ScorePolicy = overlay.ScorePolicy
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.StaticSentiment != "" {
		c.StaticSentiment = overlay.StaticSentiment
	}
}

// Options derives Client options from the config.
func (c *Config) Options() Options {
	return Options{
		Concurrency:  c.Concurrency,
		RateLimitRPS: c.RateLimitRPS,
		ScorePolicy:  ScorePolicy(c.ScorePolicy),
	}
}

func (c *Config) loadDefaults() {
	if c.Detector == "" {
		c.Detector = DetectorComprehend
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 10
	}
	if c.ScorePolicy == "" {
		c.ScorePolicy = string(ScoreLenient)
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.Model == "" {
		switch c.Detector {
		case DetectorGemini:
			c.Model = "gemini-2.5-flash"
		case DetectorOpenAI:
			c.Model = "gpt-4o-mini"
		}
	}
	if c.StaticSentiment == "" {
		c.StaticSentiment = string(records.SentimentNeutral)
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Detector != "" {
		if v := os.Getenv(env.Detector); v != "" {
			c.Detector = v
		}
	}
	if env.Concurrency != "" {
		if v := os.Getenv(env.Concurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Concurrency = n
			}
		}
	}
	if env.RateLimitRPS != "" {
		if v := os.Getenv(env.RateLimitRPS); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.RateLimitRPS = f
			}
		}
	}
	if env.ScorePolicy != "" {
		if v := os.Getenv(env.ScorePolicy); v != "" {
			c.ScorePolicy = v
		}
	}
	if env.Region != "" {
		if v := os.Getenv(env.Region); v != "" {
			c.Region = v
		}
	}
	if env.Model != "" {
		if v := os.Getenv(env.Model); v != "" {
			c.Model = v
		}
	}
	if env.APIKey != "" {
		if v := os.Getenv(env.APIKey); v != "" {
			c.APIKey = v
		}
	}
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.StaticSentiment != "" {
		if v := os.Getenv(env.StaticSentiment); v != "" {
			c.StaticSentiment = v
		}
	}
}

func (c *Config) validate() error {
	switch ScorePolicy(c.ScorePolicy) {
	case ScoreLenient, ScoreStrict:
	default:
		return fmt.Errorf("score_policy must be %q or %q, got %q", ScoreLenient, ScoreStrict, c.ScorePolicy)
	}

	switch c.Detector {
	case DetectorComprehend:
		if c.Region == "" {
			return fmt.Errorf("region required")
		}
	case DetectorGemini, DetectorOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("api_key required for detector %s", c.Detector)
		}
	case DetectorStatic:
		if !records.Sentiment(c.StaticSentiment).Valid() {
			return fmt.Errorf("static_sentiment %q is not a sentiment label", c.StaticSentiment)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDetector, c.Detector)
	}
	return nil
}
