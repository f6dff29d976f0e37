package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const apiBaseEnv = "PBCDASH_API_BASE"

type FilterConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// SearchConfig mirrors the search settings the dashboard backend publishes.
type SearchConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Endpoint         string `yaml:"endpoint"`
	DefaultTopK      int    `yaml:"default_topk"`
	MaxTopK          int    `yaml:"max_topk"`
	IncludeDocuments *bool  `yaml:"include_documents,omitempty"`
	Reason           string `yaml:"reason"`
}

// Endpoint is a user-defined API explorer entry. Fields are kept raw and
// normalized by the explorer package.
type Endpoint struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Method      string `yaml:"method"`
	Path        string `yaml:"path"`
	Description string `yaml:"description"`
	Query       string `yaml:"query"`
	Hint        string `yaml:"hint"`
	Body        string `yaml:"body"`
}

type ExplorerConfig struct {
	Endpoints []Endpoint `yaml:"endpoints"`
}

type Config struct {
	APIBase        string         `yaml:"api_base"`
	StaticSnapshot bool           `yaml:"static_snapshot"`
	InitialData    string         `yaml:"initial_data,omitempty"`
	AutoRefresh    int            `yaml:"auto_refresh"`
	Timeout        string         `yaml:"timeout"`
	LogLevel       string         `yaml:"log_level"`
	Filter         FilterConfig   `yaml:"filter"`
	Search         SearchConfig   `yaml:"search"`
	Explorer       ExplorerConfig `yaml:"explorer"`
}

// SearchEnabled reports whether remote search may be used. Static snapshots
// never search.
func (c *Config) SearchEnabled() bool {
	return c.Search.Enabled && !c.StaticSnapshot
}

// SearchDisabledReason explains why search is off.
func (c *Config) SearchDisabledReason() string {
	if c.StaticSnapshot {
		return "Search is unavailable in static snapshots."
	}
	if c.Search.Reason != "" {
		return c.Search.Reason
	}
	return "Search is disabled."
}

func (c *Config) SearchEndpoint() string {
	if strings.TrimSpace(c.Search.Endpoint) == "" {
		return "/api/search"
	}
	return c.Search.Endpoint
}

// IncludeDocuments defaults to true unless explicitly disabled.
func (c *Config) IncludeDocuments() bool {
	if c.Search.IncludeDocuments == nil {
		return true
	}
	return *c.Search.IncludeDocuments
}

func (c *Config) MaxTopK() int {
	if c.Search.MaxTopK <= 0 {
		return 50
	}
	return c.Search.MaxTopK
}

// DefaultTopK returns the configured default clamped into [1, MaxTopK].
func (c *Config) DefaultTopK() int {
	k := c.Search.DefaultTopK
	if k <= 0 {
		k = 5
	}
	if limit := c.MaxTopK(); k > limit {
		k = limit
	}
	return k
}

func (c *Config) MaxLimit() int {
	if c.Filter.MaxLimit <= 0 {
		return 500
	}
	return c.Filter.MaxLimit
}

func (c *Config) DefaultLimit() int {
	l := c.Filter.DefaultLimit
	if l <= 0 {
		l = 50
	}
	if limit := c.MaxLimit(); l > limit {
		l = limit
	}
	return l
}

func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// AutoRefreshInterval returns zero when polling is disabled.
func (c *Config) AutoRefreshInterval() time.Duration {
	if c.StaticSnapshot || c.AutoRefresh <= 0 {
		return 0
	}
	return time.Duration(c.AutoRefresh) * time.Second
}

// AutoRefreshLabel is the value shown next to the refresh indicator.
func (c *Config) AutoRefreshLabel() string {
	switch {
	case c.StaticSnapshot:
		return "snapshot"
	case c.AutoRefresh > 0:
		return fmt.Sprintf("%d", c.AutoRefresh)
	default:
		return "∞"
	}
}

// LoadInitialData reads the snapshot task array referenced by initial_data.
// A missing setting returns (nil, nil).
func (c *Config) LoadInitialData() ([]byte, error) {
	if c.InitialData == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.InitialData)
	if err != nil {
		return nil, fmt.Errorf("reading initial data: %w", err)
	}
	return data, nil
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "pbcdash", "config.yaml")
}

func LogPath() string {
	return filepath.Join(xdg.StateHome, "pbcdash", "pbcdash.log")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config file at path (or the default location), layering it
// over the embedded defaults. The environment can override api_base.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Non-fatal: keep embedded defaults
		_ = writeDefaults(path)
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if v := os.Getenv(apiBaseEnv); v != "" {
		cfg.APIBase = v
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	if cfg.APIBase != "" {
		u, err := url.Parse(cfg.APIBase)
		if err != nil {
			return fmt.Errorf("api_base: invalid url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("api_base: url scheme must be http or https, got %q", u.Scheme)
		}
	}
	if cfg.Search.MaxTopK < 0 {
		return fmt.Errorf("search.max_topk must be positive, got %d", cfg.Search.MaxTopK)
	}
	if cfg.Filter.MaxLimit < 0 {
		return fmt.Errorf("filter.max_limit must be positive, got %d", cfg.Filter.MaxLimit)
	}
	if cfg.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Timeout); err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
	}
	return nil
}
