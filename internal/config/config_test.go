package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// isolate points CONFIG_PATH at a missing file and clears the mapped variables.
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	for key := range envMappings {
		envName := strings.ToUpper(key)
		t.Setenv(envName, "")
		os.Unsetenv(envName)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./data/synapso.db", cfg.Database.Path)
	assert.Equal(t, 30*24*time.Hour, cfg.Security.SessionTTL)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.BootstrapAdmin())
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/synapso-test.db")
	t.Setenv("TZ_NAME", "Europe/Paris")
	t.Setenv("SESSION_TTL", "12h")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://synapso.example ")
	t.Setenv("RATE_LIMIT_REQUESTS", "20")
	t.Setenv("ADMIN_NAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "changeme123")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,172.16.0.0/12")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/synapso-test.db", cfg.Database.Path)
	assert.Equal(t, 12*time.Hour, cfg.Security.SessionTTL)
	assert.True(t, cfg.Security.SecureCookies)
	assert.Equal(t, []string{"http://localhost:5173", "https://synapso.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 20, cfg.RateLimit.Requests)
	assert.True(t, cfg.BootstrapAdmin())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.Security.TrustedProxies)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestLoad_File(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7070
  static_path: /srv/synapso
security:
  session_secret: ` + testSecret + `
rate_limit:
  requests: 50
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv(ConfigPathEnvVar, path)
	// Environment wins over the file
	t.Setenv("RATE_LIMIT_REQUESTS", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/srv/synapso", cfg.Server.StaticPath)
	assert.Equal(t, 60, cfg.RateLimit.Requests)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep their defaults
	assert.Equal(t, 5, cfg.RateLimit.LoginBurst)
}

func TestLoad_MissingSecret(t *testing.T) {
	isolate(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_secret")
}

func TestRead_SkipsValidation(t *testing.T) {
	isolate(t)
	t.Setenv("DB_PATH", "/tmp/cli.db")

	cfg, err := Read()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cli.db", cfg.Database.Path)
	assert.Empty(t, cfg.Security.SessionSecret)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.SessionSecret = testSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.Security.SessionSecret = "short" }, "session_secret"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"admin name without password", func(c *Config) { c.Security.AdminName = "admin" }, "admin_password"},
		{"zero requests", func(c *Config) { c.RateLimit.Requests = 0 }, "rate_limit.requests"},
		{"zero requests but disabled", func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.Requests = 0
		}, ""},
		{"login throttle needs positive values when the API limit is off", func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.LoginBurst = 0
		}, "login_burst"},
		{"trusted proxy CIDR", func(c *Config) { c.Security.TrustedProxies = []string{"10.0.0.0/8", "::1"} }, ""},
		{"bad trusted proxy", func(c *Config) { c.Security.TrustedProxies = []string{"proxy.local"} }, "trusted_proxies"},
		{"unknown timezone", func(c *Config) { c.Server.Timezone = "Mars/Olympus" }, "timezone"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
