package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the TOML file.
const (
	EnvAPIURL   = "CRATE_API_URL"
	EnvDBPath   = "CRATE_DB_PATH"
	EnvLogLevel = "CRATE_LOG_LEVEL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Upload   UploadConfig   `toml:"upload"`
	Database DatabaseConfig `toml:"database"`
	Export   ExportConfig   `toml:"export"`
	Logging  LoggingConfig  `toml:"logging"`
}

// APIConfig points the client at the analysis server.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout string `toml:"request_timeout"`
}

// UploadConfig controls the upload queue and the analysis poller.
type UploadConfig struct {
	Extension       string `toml:"extension"`
	PollInterval    string `toml:"poll_interval"`
	MaxPollFailures int    `toml:"max_poll_failures"`
	UploadTimeout   string `toml:"upload_timeout"`
	PollTimeout     string `toml:"poll_timeout"`
	WatchDir        string `toml:"watch_dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ExportConfig controls where batch exports are written.
type ExportConfig struct {
	OutputDir string `toml:"output_dir"`
}

// LoggingConfig contains log level and the file used while the TUI is running.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadEnv reads a .env file when one is present and applies environment overrides to c.
//
// A missing .env file is not an error.
func (c *Config) LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks durations and numeric limits.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"api.request_timeout":   c.API.RequestTimeout,
		"upload.poll_interval":  c.Upload.PollInterval,
		"upload.upload_timeout": c.Upload.UploadTimeout,
		"upload.poll_timeout":   c.Upload.PollTimeout,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return fmt.Errorf("%w: %s must be a non-negative duration, got %q", ErrInvalidConfig, name, value)
		}
	}
	if c.Upload.MaxPollFailures < 0 {
		return fmt.Errorf("%w: upload.max_poll_failures must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Timeout returns the per-request timeout for plain API calls.
func (c APIConfig) Timeout() time.Duration {
	return parseDuration(c.RequestTimeout, 30*time.Second)
}

// Interval returns the fixed poll interval.
func (c UploadConfig) Interval() time.Duration {
	return parseDuration(c.PollInterval, 2*time.Second)
}

// UploadDeadline returns the timeout applied to a single upload request.
func (c UploadConfig) UploadDeadline() time.Duration {
	return parseDuration(c.UploadTimeout, 10*time.Minute)
}

// PollDeadline returns the timeout applied to a single status poll.
func (c UploadConfig) PollDeadline() time.Duration {
	return parseDuration(c.PollTimeout, 30*time.Second)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
