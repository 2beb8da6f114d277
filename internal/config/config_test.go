package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, defaultAdminPort, cfg.AdminPort)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, defaultDevJWTSecret, cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTokenTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshTokenTTL())

	assert.Equal(t, 5, cfg.Security.API.MaxFailedAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Security.API.LockDuration())
	assert.Equal(t, time.Hour, cfg.Security.API.CleanupInterval())
	assert.Equal(t, 3, cfg.Security.Admin.MaxFailedAttempts)
	assert.Equal(t, time.Hour, cfg.Security.Admin.LockDuration())
	assert.Equal(t, 30*time.Minute, cfg.Security.Admin.CleanupInterval())

	assert.Equal(t, LimitConfig{MaxRequests: 3, WindowSeconds: 60}, cfg.RateLimit.IP)
	assert.Equal(t, LimitConfig{MaxRequests: 5, WindowSeconds: 3600}, cfg.RateLimit.Email)
	assert.Equal(t, LimitConfig{MaxRequests: 10, WindowSeconds: 60}, cfg.RateLimit.Global)

	assert.Equal(t, 5*time.Minute, cfg.Session.TTL())
	assert.Equal(t, 10*time.Minute, cfg.Session.RegistrationTokenTTL())
	assert.Equal(t, int64(5<<20), cfg.Storage.MaxSizeBytes())

	assert.Contains(t, cfg.DSN, "root:password@tcp(127.0.0.1:3306)/routepick?")
	assert.Contains(t, cfg.DSN, "charset=utf8mb4")
	assert.Contains(t, cfg.DSN, "parseTime=true")
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestParseProductionRequiresSecret(t *testing.T) {
	_, err := Parse([]byte("env: production\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")

	cfg, err := Parse([]byte("env: prod\njwt:\n  secret: 0123456789abcdef0123456789abcdef\n"))
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDev())
}

func TestParseAliasesAndOverrides(t *testing.T) {
	content := []byte(`
port: 9000
db_host: db.internal
db_port: 3307
db_name: climbing
redis_url: cache.internal:6380/2
jwt_secret: 0123456789abcdef0123456789abcdef-override
tz: UTC
cors_allowed_origins: [" *.routepick.dev ", ""]
security:
  admin:
    max_failed_attempts: 2
rate_limit:
  backend: Redis
  email:
    max_requests: 7
session:
  backend: redis
storage:
  driver: s3
  s3:
    bucket: profiles
`)
	cfg, err := Parse(content)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Contains(t, cfg.DSN, "tcp(db.internal:3307)/climbing")
	assert.Equal(t, "redis://cache.internal:6380/2", cfg.RedisURL)
	assert.Equal(t, "0123456789abcdef0123456789abcdef-override", cfg.JWT.Secret)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, []string{"*.routepick.dev"}, cfg.AllowedOrigins)

	assert.Equal(t, 2, cfg.Security.Admin.MaxFailedAttempts)
	assert.Equal(t, 60, cfg.Security.Admin.LockDurationMinutes)
	assert.Equal(t, BackendRedis, cfg.RateLimit.Backend)
	assert.Equal(t, LimitConfig{MaxRequests: 7, WindowSeconds: 3600}, cfg.RateLimit.Email)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, StorageS3, cfg.Storage.Driver)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("unknown_key: 1\n"))
	require.Error(t, err)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"port":       "port: 70000\n",
		"backend":    "session:\n  backend: memcached\n",
		"policy":     "security:\n  api:\n    max_failed_attempts: -1\n",
		"s3 bucket":  "storage:\n  driver: s3\n",
		"timezone":   "timezone: Mars/Olympus\n",
		"rate limit": "rate_limit:\n  global:\n    window_seconds: -5\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content))
			assert.Error(t, err)
		})
	}
}

func TestRedisOptions(t *testing.T) {
	cfg := Default()
	cfg.Redis = normalizeRedisConfig(RedisRuntimeConfig{Host: "cache", Port: 6390, DB: 3, Password: "secret"})

	opts, err := cfg.Redis.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6390", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, "secret", opts.Password)
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("admin_port: 9100\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.AdminPort)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}
