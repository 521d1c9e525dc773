package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
remote:
  type: simulated
sync:
  head_refresh_ttl: 2m
  max_auto_pages: 7
cache:
  backend: sqlite
  dir: /tmp/marquee-test
ui:
  prefetch_rows: 3
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, SourceTypeSimulated, cfg.Remote.Type)
	assert.Equal(t, 2*time.Minute, cfg.Sync.HeadRefreshTTL)
	assert.Equal(t, 7, cfg.Sync.MaxAutoPages)
	assert.Equal(t, CacheBackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, 3, cfg.UI.PrefetchRows)

	// untouched keys keep their defaults
	assert.Equal(t, "https://api.themoviedb.org/3", cfg.Remote.URL)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, uint(3), cfg.Remote.RetryAttempts)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	path := writeFile(t, "remote:\n  type: tmdb\n")
	t.Setenv("MARQUEE_REMOTE_API_KEY", "secret")
	t.Setenv("MARQUEE_SYNC_MAX_AUTO_PAGES", "4")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Remote.APIKey)
	assert.Equal(t, 4, cfg.Sync.MaxAutoPages)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWriteConfig_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.Type = SourceTypeSimulated
	cfg.Sync.HeadRefreshTTL = 90 * time.Second
	cfg.Telemetry.OTLPEndpoint = "localhost:4317"
	cfg.Telemetry.Headers = map[string]string{"authorization": "Bearer x"}

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, WriteConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, SourceTypeSimulated, loaded.Remote.Type)
	assert.Equal(t, 90*time.Second, loaded.Sync.HeadRefreshTTL)
	assert.Equal(t, "localhost:4317", loaded.Telemetry.OTLPEndpoint)
	assert.Equal(t, "Bearer x", loaded.Telemetry.Headers["authorization"])
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults need an api key", func(*Config) {}, "remote.api_key"},
		{"tmdb with key", func(c *Config) { c.Remote.APIKey = "k" }, ""},
		{"simulated needs no key", func(c *Config) { c.Remote.Type = SourceTypeSimulated }, ""},
		{"unknown source", func(c *Config) { c.Remote.Type = "imdb" }, "remote.type"},
		{"unknown backend", func(c *Config) {
			c.Remote.Type = SourceTypeSimulated
			c.Cache.Backend = "redis"
		}, "cache.backend"},
		{"zero auto pages", func(c *Config) {
			c.Remote.Type = SourceTypeSimulated
			c.Sync.MaxAutoPages = 0
		}, "max_auto_pages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
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

func TestSourceKey(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	tmdbKey := cfg.SourceKey()
	cfg.Remote.Region = "GB"
	assert.NotEqual(t, tmdbKey, cfg.SourceKey())

	cfg.Remote.Type = SourceTypeSimulated
	assert.Equal(t, "simulated", cfg.SourceKey())
}
