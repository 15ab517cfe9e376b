package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Option adjusts a loaded Config before validation.
// The CLI uses options to let flags override the environment.
type Option func(*Config)

// WithCSVDir overrides CSV_DIR when dir is non-empty.
func WithCSVDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.Load.CSVDir = dir
		}
	}
}

// WithInitFile overrides DB_INIT when path is non-empty.
func WithInitFile(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.Load.InitFile = path
		}
	}
}

// WithFailedDir overrides LOAD_FAILED_DIR when dir is non-empty.
func WithFailedDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.Load.FailedDir = dir
		}
	}
}

// Load reads configuration from environment variables.
// It applies defaults for unset values, then opts, and validates the result.
func Load(opts ...Option) (*Config, error) {
	return LoadFrom(os.Getenv, opts...)
}

// LoadFrom is Load with a custom variable lookup.
func LoadFrom(getenv func(string) string, opts ...Option) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal, getenv); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}
		envAlt := field.Tag.Get("envAlt")

		value := getenv(envName)
		if value == "" && envAlt != "" {
			value = getenv(envAlt)
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.URL == "" {
		if c.Database.Name == "" {
			errs = append(errs, "DB_NAME is required when DATABASE_URL is not set")
		}
		if c.Database.User == "" {
			errs = append(errs, "DB_USER is required when DATABASE_URL is not set")
		}
		if c.Database.Host == "" {
			errs = append(errs, "DB_HOST must not be empty")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("DB_PORT (%d) must be 1-65535", c.Database.Port))
		}
		validModes := map[string]bool{
			"disable": true, "allow": true, "prefer": true,
			"require": true, "verify-ca": true, "verify-full": true,
		}
		if !validModes[c.Database.SSLMode] {
			errs = append(errs, fmt.Sprintf("DB_SSLMODE (%q) must be one of: disable, allow, prefer, require, verify-ca, verify-full", c.Database.SSLMode))
		}
	}
	if c.Database.ConnectTimeout < 0 {
		errs = append(errs, "DB_CONNECT_TIMEOUT must be non-negative")
	}

	if c.Load.CSVDir == "" {
		errs = append(errs, "CSV_DIR is required")
	}
	if c.Load.Timeout < 0 {
		errs = append(errs, "LOAD_TIMEOUT must be non-negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The password and database URL are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	if c.Database.URL != "" {
		b.WriteString("Database: {URL: [MASKED]}, ")
	} else {
		b.WriteString(fmt.Sprintf("Database: {Host: %q, Port: %d, Name: %q, User: %q, Password: [MASKED], SSLMode: %q}, ",
			c.Database.Host, c.Database.Port, c.Database.Name, c.Database.User, c.Database.SSLMode))
	}
	b.WriteString(fmt.Sprintf("Load: {CSVDir: %q, InitFile: %q, FailedDir: %q, Timeout: %s}, ",
		c.Load.CSVDir, c.Load.InitFile, c.Load.FailedDir, c.Load.Timeout))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
