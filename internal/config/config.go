// Package config provides centralized configuration management for the service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Convert  ConvertConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`

	// MaxBodySize is the largest accepted request body in bytes (default: 100MB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"104857600"`

	// MaxConcurrent is the number of conversions processed at once (default: 5)
	MaxConcurrent int `env:"SERVER_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a request waits for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `env:"SERVER_MAX_WAIT_TIME" default:"30s"`
}

// DatabaseConfig holds the optional import target.
// An empty URL disables the import endpoint.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// CopyBatchSize is the number of rows sent per COPY (default: 5000)
	CopyBatchSize int `env:"DB_COPY_BATCH_SIZE" default:"5000"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// ConvertConfig holds the default table options. Request parameters may
// override some of them.
type ConvertConfig struct {
	// Locale is a built-in locale profile name (default: default)
	Locale string `env:"ROWS_LOCALE" default:"default"`

	// LocaleFile is a YAML or TOML locale profile. It replaces Locale.
	LocaleFile string `env:"ROWS_LOCALE_FILE"`

	// DecimalSeparator overrides the profile's decimal separator.
	DecimalSeparator string `env:"ROWS_DECIMAL_SEPARATOR"`

	// DateFormats override the profile's date layouts. Go layouts or
	// strftime patterns, separated by ";".
	DateFormats []string `env:"ROWS_DATE_FORMATS" sep:";"`

	// SampleSize is the number of rows used for type detection, or "all" (default: 1000)
	SampleSize string `env:"ROWS_SAMPLE_SIZE" default:"1000"`

	// NullValues are the spellings read as null. Unset keeps the built-in list.
	NullValues []string `env:"ROWS_NULL_VALUES"`

	// Policy is reject or widen (default: reject)
	Policy string `env:"ROWS_CONVERSION_POLICY" default:"reject"`

	// NormalizeHeader slugs header names (default: false)
	NormalizeHeader bool `env:"ROWS_NORMALIZE_HEADER" default:"false"`

	// MaxRows caps the rows loaded per request; 0 is unlimited (default: 0)
	MaxRows int `env:"ROWS_MAX_ROWS" default:"0"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are believed
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys, when set, are required in the X-API-Key header of /api requests
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
