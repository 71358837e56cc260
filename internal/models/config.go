package models

// Config holds the application configuration
type Config struct {
	Server      ServerConfig  `json:"server"`
	Journal     JournalConfig `json:"journal"`
	Retry       RetryConfig   `json:"retry"`
	Tracing     TracingConfig `json:"tracing"`
	MaxUploadMB int           `json:"max_upload_mb"`
	LogLevel    string        `json:"log_level"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	ReadTimeoutSec     int    `json:"read_timeout_sec"`
	WriteTimeoutSec    int    `json:"write_timeout_sec"`
	IdleTimeoutSec     int    `json:"idle_timeout_sec"`
	ShutdownTimeoutSec int    `json:"shutdown_timeout_sec"`
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Leave off unless a reverse proxy sits in front.
	TrustProxyHeaders bool `json:"trust_proxy_headers"`
}

// JournalConfig configures the load journal. An empty Path disables it.
type JournalConfig struct {
	Path       string `json:"path"`
	MaxEntries int    `json:"max_entries"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	UseStdout      bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
