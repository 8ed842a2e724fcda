package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no stray .env is read.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_DEBUG", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "weekly", cfg.Mentorship.DefaultFrequency)
	assert.Equal(t, 100, cfg.Mentorship.MaxPageSize)
	assert.Equal(t, 30*time.Second, cfg.App.ShutdownTimeout)
	assert.True(t, cfg.IsDevelopment())

	require.NotNil(t, cfg.Features)
	assert.True(t, cfg.Features.IsEnabled(FeatureAutoCompleteMentorship, nil))
	assert.False(t, cfg.Features.IsEnabled(FeatureUniqueActivePair, nil))
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "mentorship.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: mentors-test
  shutdown_timeout: 5s
log:
  level: warn
  format: console
mentorship:
  default_frequency: monthly
  max_page_size: 50
redis:
  cache_ttl: 2m
features:
  unique_active_pair: true
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MENTORSHIP_MAX_PAGE_SIZE", "25")
	t.Setenv("FEATURE_AUTO_COMPLETE_MENTORSHIP", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mentors-test", cfg.App.Name)
	assert.Equal(t, 5*time.Second, cfg.App.ShutdownTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "monthly", cfg.Mentorship.DefaultFrequency)
	assert.Equal(t, 25, cfg.Mentorship.MaxPageSize, "env wins over the file")
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL, "untouched defaults survive the file")

	assert.True(t, cfg.Features.IsEnabled(FeatureUniqueActivePair, nil))
	assert.False(t, cfg.Features.IsEnabled(FeatureAutoCompleteMentorship, nil))
}

func TestLoad_DebugForcesDebugLevel(t *testing.T) {
	isolate(t)
	t.Setenv("APP_DEBUG", "true")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_BadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: [unclosed"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	assert.ErrorContains(t, err, "parse config file")

	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	_, err = Load()
	assert.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"postgres without url", func(c *Config) { c.Storage.Driver = DriverPostgres }, "DATABASE_URL"},
		{"postgres with url", func(c *Config) {
			c.Storage.Driver = DriverPostgres
			c.Database.URL = "postgres://localhost/mentorship"
		}, ""},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, "STORAGE_DRIVER"},
		{"memory in production", func(c *Config) { c.App.Environment = EnvProduction }, "production"},
		{"custom default frequency", func(c *Config) { c.Mentorship.DefaultFrequency = "custom" }, "DEFAULT_FREQUENCY"},
		{"zero page size", func(c *Config) { c.Mentorship.MaxPageSize = 0 }, "MAX_PAGE_SIZE"},
		{"bad redis port", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Port = 0
		}, "REDIS_PORT"},
		{"event bus without redis", func(c *Config) {
			c.Features = NewFeatureFlags(map[string]bool{FeatureRedisEventBus: true})
		}, "redis_event_bus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFeatureFlags(t *testing.T) {
	ff := NewFeatureFlags(map[string]bool{"not_a_feature": true})
	assert.False(t, ff.IsEnabled("not_a_feature", nil))

	ff.SetEnabled(FeatureUniqueActivePair, true)
	assert.True(t, ff.IsEnabled(FeatureUniqueActivePair, nil))

	ff.SetUserOverride("u1", FeatureUniqueActivePair, false)
	assert.False(t, ff.IsEnabled(FeatureUniqueActivePair, &FeatureContext{UserID: "u1"}))
	assert.True(t, ff.IsEnabled(FeatureUniqueActivePair, &FeatureContext{UserID: "u2"}))

	all := ff.All()
	assert.Len(t, all, len(knownFeatures))
	assert.True(t, all[FeatureUniqueActivePair])
	assert.False(t, all[FeatureRedisEventBus])

	assert.Equal(t, "FEATURE_UNIQUE_ACTIVE_PAIR", featureNameToEnvKey(FeatureUniqueActivePair))
}

func TestIsInRolloutIsStable(t *testing.T) {
	first := isInRollout("user-42", "x", 50)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, isInRollout("user-42", "x", 50))
	}
	assert.False(t, isInRollout("user-42", "x", 0))
	assert.True(t, isInRollout("user-42", "x", 100))
}
