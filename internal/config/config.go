// Package config provides configuration management for the articlesync client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/articlesync/internal/gateway"
	"github.com/yourusername/articlesync/internal/resolver"
	"github.com/yourusername/articlesync/internal/storage"
)

// Environment variables that override file values.
const (
	EnvAPIURL    = "ARTICLESYNC_API_URL"
	EnvToken     = "ARTICLESYNC_TOKEN"
	EnvStore     = "ARTICLESYNC_STORE"
	EnvStorePath = "ARTICLESYNC_STORE_PATH"
	EnvLogLevel  = "ARTICLESYNC_LOG_LEVEL"
)

// Config represents the main application configuration.
type Config struct {
	API    APIConfig    `yaml:"api"`
	Store  StoreConfig  `yaml:"store"`
	Sync   SyncConfig   `yaml:"sync"`
	List   ListConfig   `yaml:"list"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// APIConfig configures the remote content API.
type APIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 disables pacing
	Burst             int     `yaml:"burst"`
	Token             string  `yaml:"token"` // Optional: preset session token for scripting
}

// StoreConfig selects where the local snapshot and session live.
type StoreConfig struct {
	Backend string `yaml:"backend"` // file, badger or memory
	Path    string `yaml:"path"`
}

// SyncConfig tunes fallback and change observation.
type SyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	Debounce     time.Duration `yaml:"debounce"`
	DetailPolicy string        `yaml:"detail_policy"` // local-first or remote-first
}

// ListConfig holds listing defaults.
type ListConfig struct {
	PageSize     int `yaml:"page_size"`
	RelatedLimit int `yaml:"related_limit"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ServerConfig configures the bundled demo API.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	DBPath string `yaml:"db_path"`
}

// DefaultPath returns the config file location under the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "articlesync", "config.yaml")
}

// DataDir returns the default state directory under the XDG data home.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "articlesync")
}

// Default returns a configuration with every default applied and no file
// read. Environment overrides are applied.
func Default() *Config {
	var config Config
	config.applyEnv()
	config.applyDefaults()
	return &config
}

// Load reads and parses a configuration file from the specified path. An
// empty path skips the file and yields defaults.
func Load(path string) (*Config, error) {
	var config Config
	if path != "" {
		// #nosec G304 -- path is provided by user as configuration file path
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	}

	// Override with environment variables (env vars take precedence). This
	// runs before defaults so derived paths follow an overridden backend.
	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = gateway.DefaultBaseURL
	}
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = 10
	}
	if c.API.Burst == 0 {
		c.API.Burst = 5
	}

	if c.Store.Backend == "" {
		c.Store.Backend = string(storage.KindFile)
	}
	if c.Store.Path == "" && c.Store.Backend != string(storage.KindMemory) {
		c.Store.Path = filepath.Join(DataDir(), c.Store.Backend)
	}

	if c.Sync.PollInterval == 0 {
		c.Sync.PollInterval = 2 * time.Second
	}
	if c.Sync.Debounce == 0 {
		c.Sync.Debounce = 500 * time.Millisecond
	}
	if c.Sync.DetailPolicy == "" {
		c.Sync.DetailPolicy = resolver.LocalFirst.String()
	}

	if c.List.PageSize == 0 {
		c.List.PageSize = 10
	}
	if c.List.RelatedLimit == 0 {
		c.List.RelatedLimit = 3
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = filepath.Join(DataDir(), "demoapi.db")
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv(EnvStorePath); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url cannot be empty")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds < 1 || c.API.TimeoutSeconds > 300 {
		return fmt.Errorf("api.timeout_seconds must be between 1 and 300, got %d", c.API.TimeoutSeconds)
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second cannot be negative, got %s",
			strconv.FormatFloat(c.API.RequestsPerSecond, 'f', -1, 64))
	}
	if c.API.Burst < 1 {
		return fmt.Errorf("api.burst must be at least 1, got %d", c.API.Burst)
	}

	switch storage.Kind(c.Store.Backend) {
	case storage.KindFile, storage.KindBadger:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path cannot be empty for backend %q", c.Store.Backend)
		}
	case storage.KindMemory:
	default:
		return fmt.Errorf("store.backend must be one of file, badger, memory, got %q", c.Store.Backend)
	}

	if c.Sync.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("sync.poll_interval must be at least 100ms, got %s", c.Sync.PollInterval)
	}
	if c.Sync.Debounce < 0 {
		return fmt.Errorf("sync.debounce cannot be negative, got %s", c.Sync.Debounce)
	}
	if _, err := resolver.ParsePolicy(c.Sync.DetailPolicy); err != nil {
		return fmt.Errorf("sync.detail_policy: %w", err)
	}

	if c.List.PageSize < 1 || c.List.PageSize > 100 {
		return fmt.Errorf("list.page_size must be between 1 and 100, got %d", c.List.PageSize)
	}
	if c.List.RelatedLimit < 1 || c.List.RelatedLimit > 20 {
		return fmt.Errorf("list.related_limit must be between 1 and 20, got %d", c.List.RelatedLimit)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// Timeout returns the API timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// DetailPolicy returns the parsed detail policy.
func (c *Config) DetailPolicy() resolver.Policy {
	p, err := resolver.ParsePolicy(c.Sync.DetailPolicy)
	if err != nil {
		return resolver.LocalFirst
	}
	return p
}

// StorageConfig returns the backend selection for storage.Open.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{Kind: storage.Kind(c.Store.Backend), Path: c.Store.Path}
}

// GetToken returns the preset session token with env var priority.
func (c *Config) GetToken() string {
	if token := os.Getenv(EnvToken); token != "" {
		return token
	}
	return c.API.Token
}
