package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cardlift/cardlift/internal/logging"
	"github.com/cardlift/cardlift/internal/upload"
)

// Defaults applied when a field is absent from the config file.
const (
	DefaultTimeout       = "60s"
	DefaultAPIConstraint = "^1"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = logging.FormatConsole
)

// Environment variables overriding file values.
const (
	EnvHome       = "CARDLIFT_HOME"
	EnvEndpoint   = "CARDLIFT_ENDPOINT"
	EnvToken      = "CARDLIFT_TOKEN"
	EnvLogLevel   = "CARDLIFT_LOG_LEVEL"
	EnvLogFile    = "CARDLIFT_LOG_FILE"
	EnvStrictAPI  = "CARDLIFT_STRICT_API"
	EnvBatchSize  = "CARDLIFT_BATCH_SIZE"
	EnvProjectDir = "CARDLIFT_PROJECT_DIR"
)

// Config is the full cardlift configuration.
type Config struct {
	Gallery GalleryConfig `yaml:"gallery"`
	Upload  UploadConfig  `yaml:"upload"`
	Logging LoggingConfig `yaml:"logging"`
}

// GalleryConfig configures the gallery transport.
type GalleryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token,omitempty"`
	// Timeout is a duration string ("60s", "2m") so the YAML stays readable.
	Timeout       string `yaml:"timeout"`
	APIConstraint string `yaml:"api_constraint"`
	StrictAPI     bool   `yaml:"strict_api"`
}

// TimeoutDuration returns Timeout as a time.Duration. Validate guarantees it
// parses; an empty or unvalidated value comes back as zero, which the
// transport maps to its own default.
func (gc GalleryConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(gc.Timeout)
	return d
}

// UploadConfig configures the upload session.
type UploadConfig struct {
	BatchSize int `yaml:"batch_size"`
	// RateLimit paces submission in batches per second. Zero disables pacing.
	RateLimit float64 `yaml:"rate_limit"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// ToLoggingConfig bridges the configuration system to the logging
// infrastructure.
func (lc LoggingConfig) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		File:   lc.File,
	}
}

// Default returns a Config with every field at its default value.
func Default() *Config {
	return &Config{
		Gallery: GalleryConfig{
			Timeout:       DefaultTimeout,
			APIConstraint: DefaultAPIConstraint,
		},
		Upload: UploadConfig{
			BatchSize: upload.DefaultBatchSize,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// New returns the configuration from the default config path layered over
// defaults. A missing or unreadable file is not an error; the defaults stand.
// Environment overrides are applied separately via ApplyEnv so callers control
// precedence.
func New() *Config {
	cfg := Default()
	path, err := DefaultConfigPath()
	if err != nil {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	_ = yaml.Unmarshal(data, cfg)
	return cfg
}

// Load strictly reads the config file at path over defaults. Unlike New, a
// missing or malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CARDLIFT_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Gallery.Endpoint = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Gallery.Token = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv(EnvStrictAPI); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Gallery.StrictAPI = b
		}
	}
	if v := os.Getenv(EnvBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Upload.BatchSize = n
		}
	}
}

// Validate checks the configuration for values no command could run with.
func (c *Config) Validate() error {
	if c.Upload.BatchSize < upload.MinBatchSize {
		return fmt.Errorf("%w: got %d", upload.ErrInvalidBatchSize, c.Upload.BatchSize)
	}
	if c.Upload.RateLimit < 0 {
		return fmt.Errorf("upload.rate_limit cannot be negative: got %g", c.Upload.RateLimit)
	}
	if c.Gallery.Timeout != "" {
		d, err := time.ParseDuration(c.Gallery.Timeout)
		if err != nil {
			return fmt.Errorf("gallery.timeout is not a valid duration: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("gallery.timeout cannot be negative: got %s", c.Gallery.Timeout)
		}
	}
	if c.Gallery.Endpoint != "" {
		if _, err := url.Parse(c.Gallery.Endpoint); err != nil {
			return fmt.Errorf("gallery.endpoint is not a valid URL: %w", err)
		}
	}
	return nil
}

// fileTemplate is written by "cardlift config init". Kept as literal YAML so
// the generated file carries comments and human-readable durations.
const fileTemplate = `# cardlift configuration
gallery:
  # Base URL of the gallery service.
  endpoint: ""
  # Bearer token; prefer the CARDLIFT_TOKEN environment variable on shared machines.
  token: ""
  # Per-batch exchange timeout.
  timeout: 60s
  # Accepted server API version range.
  api_constraint: "^1"
  # Fail instead of warn when the server version is outside the range.
  strict_api: false

upload:
  # Items per batch exchange.
  batch_size: 10
  # Batches per second; 0 disables pacing.
  rate_limit: 0

logging:
  level: info
  format: console
  # file: ~/.cardlift/cardlift.log
`

// WriteTemplate writes a commented starter config to path. It refuses to
// overwrite an existing file unless force is set. The file is created 0600
// because it may come to hold a token.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(fileTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
