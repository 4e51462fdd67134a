// Package config resolves GenTrack's environment-driven configuration:
// the Postgres DSN precedence chain from spec section 6, plus the
// scalar tunables that govern the scheduler and HTTP server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved, validated configuration for a GenTrack process.
type Config struct {
	DatabaseURL string

	PollSeconds            int
	DefaultIntervalSeconds int
	DefaultTimeoutSeconds  int
	Port                   int
}

var globalConfig *Config

// Load resolves configuration from the environment. It must be called
// once at process startup; Get panics if called beforehand.
func Load() (*Config, error) {
	dsn, err := resolveDatabaseURL()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("monitor_poll_seconds", 5)
	v.SetDefault("default_interval_seconds", 60)
	v.SetDefault("default_timeout_seconds", 8)
	v.SetDefault("port", 5000)
	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:            dsn,
		PollSeconds:            v.GetInt("monitor_poll_seconds"),
		DefaultIntervalSeconds: v.GetInt("default_interval_seconds"),
		DefaultTimeoutSeconds:  v.GetInt("default_timeout_seconds"),
		Port:                   v.GetInt("port"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the previously loaded global configuration.
func Get() *Config {
	if globalConfig == nil {
		panic("configuration not loaded, call Load() first")
	}
	return globalConfig
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database url could not be resolved")
	}
	if c.PollSeconds < 1 {
		return fmt.Errorf("monitor_poll_seconds must be >= 1")
	}
	if c.DefaultIntervalSeconds < 1 {
		return fmt.Errorf("default_interval_seconds must be >= 1")
	}
	if c.DefaultTimeoutSeconds < 1 || c.DefaultTimeoutSeconds > 60 {
		return fmt.Errorf("default_timeout_seconds must be between 1 and 60")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// resolveDatabaseURL implements spec section 6's DSN precedence chain:
// the first non-empty of a list of fully-formed connection strings,
// else a DSN synthesized from discrete host/port/user/password/name/
// sslmode variables with URL-encoded credentials.
func resolveDatabaseURL() (string, error) {
	candidates := []string{
		"DATABASE_URL",
		"DATABASE_URI",
		"POSTGRES_URL",
		"POSTGRESQL_URL",
		"POSTGRES_CONNECTION_STRING",
		"DB_URL",
	}
	for _, name := range candidates {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}

	host := firstEnv("DB_HOST", "POSTGRES_HOST")
	port := firstEnv("DB_PORT", "POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	user := firstEnv("DB_USER", "POSTGRES_USER")
	password := firstEnv("DB_PASSWORD", "POSTGRES_PASSWORD")
	name := firstEnv("DB_NAME", "POSTGRES_DB", "DB_DATABASE")
	sslmode := firstEnv("DB_SSLMODE", "PGSSLMODE")
	if sslmode == "" {
		sslmode = "disable"
	}

	if host == "" || user == "" || password == "" || name == "" {
		return "", fmt.Errorf(
			"database not configured: set DATABASE_URL (or POSTGRES_URL/DB_URL) " +
				"or the DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME variables",
		)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     fmt.Sprintf("%s:%s", host, port),
		Path:     "/" + url.PathEscape(name),
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String(), nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
