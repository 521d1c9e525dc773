// Package config loads marquee's YAML configuration through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SourceType identifies the remote Now Playing backend
type SourceType string

const (
	SourceTypeTMDB      SourceType = "tmdb"
	SourceTypeSimulated SourceType = "simulated"
)

// CacheBackend identifies the local store implementation
type CacheBackend string

const (
	CacheBackendBolt   CacheBackend = "bolt"
	CacheBackendSQLite CacheBackend = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Remote    RemoteConfig    `mapstructure:"remote"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	UI        UIConfig        `mapstructure:"ui"`
}

// RemoteConfig selects and configures the page source
type RemoteConfig struct {
	Type          SourceType    `mapstructure:"type"`           // "tmdb" or "simulated"
	URL           string        `mapstructure:"url"`            // API base URL
	APIKey        string        `mapstructure:"api_key"`        // TMDB v3 key or v4 read token
	Language      string        `mapstructure:"language"`       // e.g. "en-US"
	Region        string        `mapstructure:"region"`         // ISO 3166-1 code, optional
	Timeout       time.Duration `mapstructure:"timeout"`        // HTTP client timeout
	RetryAttempts uint          `mapstructure:"retry_attempts"` // total tries per page
}

// SyncConfig tunes the sync coordinator
type SyncConfig struct {
	HeadRefreshTTL time.Duration `mapstructure:"head_refresh_ttl"`
	MaxAutoPages   int           `mapstructure:"max_auto_pages"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
}

// CacheConfig holds local store configuration
type CacheConfig struct {
	Backend CacheBackend `mapstructure:"backend"`
	Dir     string       `mapstructure:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// TelemetryConfig holds optional OpenTelemetry settings. An empty endpoint
// disables export.
type TelemetryConfig struct {
	OTLPEndpoint string            `mapstructure:"otlp_endpoint"`
	Insecure     bool              `mapstructure:"insecure"`
	ServiceName  string            `mapstructure:"service_name"`
	Headers      map[string]string `mapstructure:"headers"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	PrefetchRows int `mapstructure:"prefetch_rows"` // load the next page this close to the end
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			Type:          SourceTypeTMDB,
			URL:           "https://api.themoviedb.org/3",
			Language:      "en-US",
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
		},
		Sync: SyncConfig{
			HeadRefreshTTL: 10 * time.Minute,
			MaxAutoPages:   20,
			FetchTimeout:   45 * time.Second,
		},
		Cache: CacheConfig{
			Backend: CacheBackendBolt,
			Dir:     defaultCachePath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "marquee",
		},
		UI: UIConfig{
			PrefetchRows: 5,
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "marquee", "marquee.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "marquee", "marquee.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "marquee")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "marquee")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "marquee", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "marquee", "cache")
	}
}

// newViper returns a viper instance with defaults and env overrides wired.
// Every key needs a default so AutomaticEnv can see it during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()

	v.SetDefault("remote.type", string(def.Remote.Type))
	v.SetDefault("remote.url", def.Remote.URL)
	v.SetDefault("remote.api_key", def.Remote.APIKey)
	v.SetDefault("remote.language", def.Remote.Language)
	v.SetDefault("remote.region", def.Remote.Region)
	v.SetDefault("remote.timeout", def.Remote.Timeout)
	v.SetDefault("remote.retry_attempts", def.Remote.RetryAttempts)

	v.SetDefault("sync.head_refresh_ttl", def.Sync.HeadRefreshTTL)
	v.SetDefault("sync.max_auto_pages", def.Sync.MaxAutoPages)
	v.SetDefault("sync.fetch_timeout", def.Sync.FetchTimeout)

	v.SetDefault("cache.backend", string(def.Cache.Backend))
	v.SetDefault("cache.dir", def.Cache.Dir)

	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetDefault("telemetry.otlp_endpoint", def.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.insecure", def.Telemetry.Insecure)
	v.SetDefault("telemetry.service_name", def.Telemetry.ServiceName)

	v.SetDefault("ui.prefetch_rows", def.UI.PrefetchRows)

	// Environment variable overrides, e.g. MARQUEE_REMOTE_API_KEY
	v.SetEnvPrefix("MARQUEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig loads configuration from file and environment. An empty
// configFile searches the default config directory and the working directory.
func LoadConfig(configFile string) (*Config, error) {
	v := newViper()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the selected source and backend need
func (c *Config) Validate() error {
	switch c.Remote.Type {
	case SourceTypeTMDB:
		if c.Remote.URL == "" {
			return errors.New("remote.url is required")
		}
		if c.Remote.APIKey == "" {
			return errors.New("remote.api_key is required for tmdb (or set remote.type: simulated)")
		}
	case SourceTypeSimulated:
	default:
		return fmt.Errorf("unknown remote.type %q", c.Remote.Type)
	}

	switch c.Cache.Backend {
	case CacheBackendBolt, CacheBackendSQLite:
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	if c.Cache.Dir == "" {
		return errors.New("cache.dir is required")
	}

	if c.Sync.MaxAutoPages < 1 {
		return fmt.Errorf("sync.max_auto_pages must be at least 1, got %d", c.Sync.MaxAutoPages)
	}
	if c.Sync.HeadRefreshTTL < 0 {
		return fmt.Errorf("sync.head_refresh_ttl must not be negative")
	}
	if c.UI.PrefetchRows < 0 {
		return fmt.Errorf("ui.prefetch_rows must not be negative")
	}
	return nil
}

// SourceKey identifies the remote list, so each one gets its own cache
func (c *Config) SourceKey() string {
	if c.Remote.Type == SourceTypeSimulated {
		return string(SourceTypeSimulated)
	}
	return strings.Join([]string{c.Remote.URL, c.Remote.Language, c.Remote.Region}, "|")
}

// SaveConfig writes cfg to the default config file
func SaveConfig(cfg *Config) (string, error) {
	configPath := defaultConfigPath()

	// Ensure config directory exists
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	return configFile, WriteConfig(cfg, configFile)
}

// WriteConfig writes cfg as YAML to path
func WriteConfig(cfg *Config, path string) error {
	v := viper.New()

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("remote.type", string(cfg.Remote.Type))
	v.Set("remote.url", cfg.Remote.URL)
	v.Set("remote.api_key", cfg.Remote.APIKey)
	v.Set("remote.language", cfg.Remote.Language)
	v.Set("remote.region", cfg.Remote.Region)
	v.Set("remote.timeout", cfg.Remote.Timeout.String())
	v.Set("remote.retry_attempts", cfg.Remote.RetryAttempts)

	v.Set("sync.head_refresh_ttl", cfg.Sync.HeadRefreshTTL.String())
	v.Set("sync.max_auto_pages", cfg.Sync.MaxAutoPages)
	v.Set("sync.fetch_timeout", cfg.Sync.FetchTimeout.String())

	v.Set("cache.backend", string(cfg.Cache.Backend))
	v.Set("cache.dir", cfg.Cache.Dir)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	v.Set("telemetry.otlp_endpoint", cfg.Telemetry.OTLPEndpoint)
	v.Set("telemetry.insecure", cfg.Telemetry.Insecure)
	v.Set("telemetry.service_name", cfg.Telemetry.ServiceName)
	if len(cfg.Telemetry.Headers) > 0 {
		v.Set("telemetry.headers", cfg.Telemetry.Headers)
	}

	v.Set("ui.prefetch_rows", cfg.UI.PrefetchRows)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ClearCache removes all cached data under dir
func ClearCache(dir string) error {
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// GetCachePath returns the default cache directory path
func GetCachePath() string {
	return defaultCachePath()
}
