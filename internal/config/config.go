// Package config loads the Osenchi service configuration: a base TOML file,
// an optional per-environment overlay, then OSENCHI_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/osenchi/internal/classifier"
	"github.com/JaimeStill/osenchi/internal/jobs"
	"github.com/JaimeStill/osenchi/internal/notify"
	"github.com/JaimeStill/osenchi/internal/workflow"
	"github.com/JaimeStill/osenchi/pkg/database"
	"github.com/JaimeStill/osenchi/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvOsenchiEnv             = "OSENCHI_ENV"
	EnvOsenchiConfig          = "OSENCHI_CONFIG"
	EnvOsenchiShutdownTimeout = "OSENCHI_SHUTDOWN_TIMEOUT"
	EnvOsenchiVersion         = "OSENCHI_VERSION"
)

var databaseEnv = &database.Env{
	Enabled:         "OSENCHI_DB_ENABLED",
	DSN:             "OSENCHI_DB_DSN",
	Host:            "OSENCHI_DB_HOST",
	Port:            "OSENCHI_DB_PORT",
	Name:            "OSENCHI_DB_NAME",
	User:            "OSENCHI_DB_USER",
	Password:        "OSENCHI_DB_PASSWORD",
	SSLMode:         "OSENCHI_DB_SSL_MODE",
	MaxOpenConns:    "OSENCHI_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "OSENCHI_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "OSENCHI_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "OSENCHI_DB_CONN_TIMEOUT",
}

// DatabaseEnv returns the environment variable names of the database section,
// for commands that need a connection without loading the whole config.
func DatabaseEnv() *database.Env {
	return databaseEnv
}

var storageEnv = &storage.Env{
	Provider:         "OSENCHI_STORAGE_PROVIDER",
	Region:           "OSENCHI_STORAGE_REGION",
	Endpoint:         "OSENCHI_STORAGE_ENDPOINT",
	ForcePathStyle:   "OSENCHI_STORAGE_FORCE_PATH_STYLE",
	ConnectionString: "OSENCHI_STORAGE_CONNECTION_STRING",
	Buckets:          "OSENCHI_STORAGE_BUCKETS",
}

var classifierEnv = &classifier.Env{
	Detector:        "OSENCHI_CLASSIFIER_DETECTOR",
	Concurrency:     "OSENCHI_CLASSIFIER_CONCURRENCY",
	RateLimitRPS:    "OSENCHI_CLASSIFIER_RATE_LIMIT_RPS",
	ScorePolicy:     "OSENCHI_CLASSIFIER_SCORE_POLICY",
	Region:          "OSENCHI_CLASSIFIER_REGION",
	Model:           "OSENCHI_CLASSIFIER_MODEL",
	APIKey:          "OSENCHI_CLASSIFIER_API_KEY",
	BaseURL:         "OSENCHI_CLASSIFIER_BASE_URL",
	StaticSentiment: "OSENCHI_CLASSIFIER_STATIC_SENTIMENT",
}

var notifyEnv = &notify.Env{
	Backend:       "OSENCHI_NOTIFY_BACKEND",
	Topic:         "OSENCHI_NOTIFY_TOPIC",
	Region:        "OSENCHI_NOTIFY_REGION",
	Endpoint:      "OSENCHI_NOTIFY_ENDPOINT",
	APIKey:        "OSENCHI_NOTIFY_API_KEY",
	From:          "OSENCHI_NOTIFY_FROM",
	Subscribers:   "OSENCHI_NOTIFY_SUBSCRIBERS",
	SubjectPrefix: "OSENCHI_NOTIFY_SUBJECT_PREFIX",
}

var pipelineEnv = &jobs.Env{
	ServiceName:      "OSENCHI_SERVICE_NAME",
	SourceBucket:     "OSENCHI_SOURCE_BUCKET",
	DestBucket:       "OSENCHI_DEST_BUCKET",
	MaxObjectSize:    "OSENCHI_MAX_OBJECT_SIZE",
	GroupConcurrency: "OSENCHI_GROUP_CONCURRENCY",
	RetryMaxAttempts: "OSENCHI_RETRY_MAX_ATTEMPTS",
}

var workflowEnv = &workflow.Env{
	Timeout:       "OSENCHI_WORKFLOW_TIMEOUT",
	NotifyTimeout: "OSENCHI_WORKFLOW_NOTIFY_TIMEOUT",
}

// Config is the root configuration for the Osenchi service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	API             APIConfig         `toml:"api"`
	Classifier      classifier.Config `toml:"classifier"`
	Notify          notify.Config     `toml:"notify"`
	Pipeline        jobs.Config       `toml:"pipeline"`
	Workflow        workflow.Config   `toml:"workflow"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the OSENCHI_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvOsenchiEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. OSENCHI_CONFIG names the base file; without one,
// defaults and environment variables provide all configuration.
//
// An invalid notification subscriber surfaces as a *notify.ValidationError
// in the returned error chain.
func Load() (*Config, error) {
	cfg := &Config{}
	base := basePath()

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(base); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Classifier.Merge(&overlay.Classifier)
	c.Notify.Merge(&overlay.Notify)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Workflow.Merge(&overlay.Workflow)
}

// finalize resolves the pipeline first: its service name supplies the
// default topic and the buckets probed at startup.
func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Pipeline.Finalize(pipelineEnv); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if c.Notify.Topic == "" {
		c.Notify.Topic = c.Pipeline.ResourceName("topic")
	}
	if err := c.Notify.Finalize(notifyEnv); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if len(c.Storage.Buckets) == 0 {
		c.Storage.Buckets = []string{c.Pipeline.SourceBucket, c.Pipeline.DestBucket}
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Classifier.Finalize(classifierEnv); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Workflow.Finalize(workflowEnv); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvOsenchiShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvOsenchiVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

func basePath() string {
	if path := os.Getenv(EnvOsenchiConfig); path != "" {
		return path
	}
	return BaseConfigFile
}

// overlayPath returns config.<env>.toml beside the base file, if it exists.
func overlayPath(base string) string {
	env := os.Getenv(EnvOsenchiEnv)
	if env == "" {
		return ""
	}

	path := fmt.Sprintf(OverlayConfigPattern, env)
	if dir := filepath.Dir(base); dir != "." {
		path = filepath.Join(dir, path)
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
