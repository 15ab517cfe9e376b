// Package config provides centralized configuration management for csv2oltp.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Load     LoadConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
// A full URL wins over the individual fields.
type DatabaseConfig struct {
	// URL is a PostgreSQL connection string
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Host is the database server host (default: localhost)
	Host string `env:"DB_HOST" default:"localhost"`

	// Port is the database server port (default: 5432)
	Port int `env:"DB_PORT" default:"5432"`

	// Name is the database name
	Name string `env:"DB_NAME"`

	// User is the database role
	User string `env:"DB_USER"`

	// Password for User
	Password string `env:"DB_PASS" envAlt:"DB_PASSWORD"`

	// SSLMode is the libpq sslmode (default: prefer)
	SSLMode string `env:"DB_SSLMODE" default:"prefer"`

	// ConnectTimeout bounds connecting and pinging the server (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// LoadConfig holds CSV load settings.
type LoadConfig struct {
	// CSVDir is the directory holding one <table>.csv file per table
	CSVDir string `env:"CSV_DIR"`

	// InitFile is the DDL file executed before loading (optional)
	InitFile string `env:"DB_INIT"`

	// FailedDir receives "<table> - failed.csv" reports (optional)
	FailedDir string `env:"LOAD_FAILED_DIR"`

	// Timeout bounds the whole run; 0 disables it (default: 0s)
	Timeout time.Duration `env:"LOAD_TIMEOUT" default:"0s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ConnString returns the PostgreSQL connection string for pgxpool.ParseConfig.
func (c *DatabaseConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}

	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Target returns host:port/name for logging without credentials.
func (c *DatabaseConfig) Target() string {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return "[unparseable DATABASE_URL]"
		}
		return u.Host + u.Path
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) + "/" + c.Name
}
