package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds all kinscan settings
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Robots       RobotsConfig      `yaml:"robots" mapstructure:"robots"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Extract      ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	Display      DisplayConfig     `yaml:"display" mapstructure:"display"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls page fetching
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// CacheConfig controls the fetched-page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RobotsConfig controls robots.txt compliance
type RobotsConfig struct {
	Respect bool          `yaml:"respect" mapstructure:"respect"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitConfig controls per-domain request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ExtractConfig controls person extraction
type ExtractConfig struct {
	MaxDepth int `yaml:"max_depth" mapstructure:"max_depth"` // Relationship recursion cap
}

// DisplayConfig controls how dates are shown
type DisplayConfig struct {
	DateLayout string `yaml:"date_layout" mapstructure:"date_layout"` // Go time layout
}

// StoreConfig controls the scanned-page hand-off store
type StoreConfig struct {
	PageTTL time.Duration `yaml:"page_ttl" mapstructure:"page_ttl"`
}

// OutputConfig controls rendering and logging
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	JSONLogs      bool `yaml:"json_logs" mapstructure:"json_logs"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
	IncludeItems  bool `yaml:"include_items" mapstructure:"include_items"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "kinscan-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".kinscan", "cache")
	}

	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Kinscan/0.1 (+https://github.com/ppiankov/kinscan)",
			MaxBodyBytes: 5_000_000,
			MaxRetries:   3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Robots: RobotsConfig{
			Respect: true,
			Timeout: 10 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Extract: ExtractConfig{
			MaxDepth: 64,
		},
		Display: DisplayConfig{
			DateLayout: "1/2/2006",
		},
		Store: StoreConfig{
			PageTTL: 30 * time.Minute,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
