package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"smsview/internal/constants"
	"smsview/internal/models"
	"smsview/internal/security"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidPort       = models.ConfigError{Message: "server port must be between 1 and 65535"}
	ErrInvalidUploadMB   = models.ConfigError{Message: "max_upload_mb must not be negative"}
	ErrInvalidLogLevel   = models.ConfigError{Message: "unknown log level"}
	ErrInvalidSampleRate = models.ConfigError{Message: "tracing sample_rate must be between 0 and 1"}
)

// Defaults returns the configuration used when no config file is present.
func Defaults() *models.Config {
	c := &models.Config{}
	applyDefaults(c)
	return c
}

// LoadConfig reads the JSON config at path, applies defaults and environment
// overrides, and validates the result.
func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return finish(&config)
}

// LoadConfigOrDefault behaves like LoadConfig but falls back to defaults when
// the file does not exist. An empty path always uses defaults.
func LoadConfigOrDefault(path string) (*models.Config, error) {
	if path == "" {
		return finish(&models.Config{})
	}
	config, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return finish(&models.Config{})
	}
	return config, err
}

// LoadDotEnv loads variables from the given .env files (default ".env") into
// the process environment. Variables already set are kept, a missing file is
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

func finish(c *models.Config) (*models.Config, error) {
	applyEnvironmentOverrides(c)
	applyDefaults(c)
	if err := validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func applyDefaults(c *models.Config) {
	if c.Server.Host == "" {
		c.Server.Host = constants.DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Server.ShutdownTimeoutSec <= 0 {
		c.Server.ShutdownTimeoutSec = constants.DefaultGracefulShutdownSec
	}

	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = constants.DefaultMaxUploadMB
	}
	if c.Journal.MaxEntries <= 0 {
		c.Journal.MaxEntries = constants.DefaultJournalEntries
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultDatabaseRetryAttempts
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "smsview"
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func validate(c *models.Config) error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if c.MaxUploadMB < 0 {
		return ErrInvalidUploadMB
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("%s: %q", ErrInvalidLogLevel.Message, c.LogLevel)}
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	if c.Journal.Path != "" && c.Journal.Path != ":memory:" {
		if err := security.ValidateFilePath(c.Journal.Path); err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid journal path: %v", err)}
		}
	}
	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if host := os.Getenv("SMSVIEW_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SMSVIEW_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		} else {
			fmt.Fprintf(os.Stderr, "WARNING: ignoring SMSVIEW_PORT=%q: not a number\n", port)
		}
	}
	if path, ok := os.LookupEnv("SMSVIEW_JOURNAL_PATH"); ok {
		c.Journal.Path = path
	}
	if level := os.Getenv("SMSVIEW_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if mb := os.Getenv("SMSVIEW_MAX_UPLOAD_MB"); mb != "" {
		if v, err := strconv.Atoi(mb); err == nil {
			c.MaxUploadMB = v
		} else {
			fmt.Fprintf(os.Stderr, "WARNING: ignoring SMSVIEW_MAX_UPLOAD_MB=%q: not a number\n", mb)
		}
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		c.Tracing.OTLPEndpoint = endpoint
	}
}
