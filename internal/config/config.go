// Package config loads the server configuration.
//
// Values are layered: built-in defaults, then an optional YAML file
// (CONFIG_PATH, or config.yaml in the working directory), then environment
// variables. See envMappings for the recognized variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Redis     RedisConfig     `koanf:"redis"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	StaticPath string `koanf:"static_path"`

	// Timezone is the IANA zone used to compute reset periods and calendar days.
	Timezone string `koanf:"timezone"`

	CORSOrigins []string `koanf:"cors_origins"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// SecurityConfig holds the session and bootstrap admin settings.
type SecurityConfig struct {
	// SessionSecret signs the session cookies. At least 32 bytes.
	SessionSecret string        `koanf:"session_secret"`
	SessionTTL    time.Duration `koanf:"session_ttl"`
	SecureCookies bool          `koanf:"secure_cookies"`

	// AdminName and AdminPassword create an admin at startup when no user
	// of that name exists. Both empty disables the bootstrap.
	AdminName     string `koanf:"admin_name"`
	AdminPassword string `koanf:"admin_password"`

	// TrustedProxies are the IPs or CIDR ranges whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty uses the socket address only.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// RateLimitConfig holds the API rate limit and the login throttle.
// Enabled only switches the API limit; the login throttle is always on.
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`

	// Login attempts per (client IP, name)
	LoginPerMinute int `koanf:"login_per_minute"`
	LoginBurst     int `koanf:"login_burst"`
}

// RedisConfig enables shared rate limit counters when URL is set.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// LoggingConfig holds the slog settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text (tint) or json
}

// MinSessionSecretLength is the minimum size of security.session_secret.
const MinSessionSecretLength = 32

// Addr returns the listen address of the server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" || strings.EqualFold(c.Server.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

// BootstrapAdmin reports whether an admin account should be ensured at startup.
func (c *Config) BootstrapAdmin() bool {
	return c.Security.AdminName != "" && c.Security.AdminPassword != ""
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if len(c.Security.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("security.session_secret must be at least %d bytes (set SESSION_SECRET)", MinSessionSecretLength)
	}
	if c.Security.SessionTTL <= 0 {
		return errors.New("security.session_ttl must be positive")
	}
	if (c.Security.AdminName == "") != (c.Security.AdminPassword == "") {
		return errors.New("security.admin_name and security.admin_password must be set together")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("rate_limit.requests and rate_limit.window must be positive")
	}
	if c.RateLimit.LoginPerMinute <= 0 || c.RateLimit.LoginBurst <= 0 {
		return errors.New("rate_limit.login_per_minute and rate_limit.login_burst must be positive")
	}
	for _, proxy := range c.Security.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("security.trusted_proxies: %q is not an IP or CIDR range", proxy)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}
