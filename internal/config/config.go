package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the agentdex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth"`
	Search    SearchConfig    `yaml:"search"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds SQLite index settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds shared Redis settings. When no addresses are
// configured the server falls back to in-process query history and
// rate limiting.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	SearchEntries  int `yaml:"search_entries"`
	SearchTTLSec   int `yaml:"search_ttl_sec"`
	SuggestEntries int `yaml:"suggest_entries"`
	SuggestTTLSec  int `yaml:"suggest_ttl_sec"`
}

// BreakerConfig holds circuit breaker tunings per pipeline.
type BreakerConfig struct {
	Search  BreakerTuning `yaml:"search"`
	Suggest BreakerTuning `yaml:"suggest"`
}

// BreakerTuning holds a single breaker's thresholds.
type BreakerTuning struct {
	FailureThreshold int `yaml:"failure_threshold"`
	WindowSec        int `yaml:"window_sec"`
	CooldownSec      int `yaml:"cooldown_sec"`
}

// AuthConfig holds API key settings. Known keys unlock the authenticated
// rate limit tier.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig holds per-client request budgets.
type RateLimitConfig struct {
	Anonymous     int `yaml:"anonymous_per_window"`
	Authenticated int `yaml:"authenticated_per_window"`
	WindowSec     int `yaml:"window_sec"`
}

// SearchConfig holds search pagination settings.
type SearchConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// SuggestConfig holds autocomplete settings.
type SuggestConfig struct {
	MinResults     int    `yaml:"min_results"`
	MaxResults     int    `yaml:"max_results"`
	HeuristicsPath string `yaml:"heuristics_path"` // empty = built-in tables
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "agentdex.db"
	}
	if c.Cache.SearchEntries <= 0 {
		c.Cache.SearchEntries = 500
	}
	if c.Cache.SearchTTLSec <= 0 {
		c.Cache.SearchTTLSec = 30
	}
	if c.Cache.SuggestEntries <= 0 {
		c.Cache.SuggestEntries = 200
	}
	if c.Cache.SuggestTTLSec <= 0 {
		c.Cache.SuggestTTLSec = 30
	}
	if c.Breaker.Search.FailureThreshold <= 0 {
		c.Breaker.Search.FailureThreshold = 5
	}
	if c.Breaker.Search.WindowSec <= 0 {
		c.Breaker.Search.WindowSec = 60
	}
	if c.Breaker.Search.CooldownSec <= 0 {
		c.Breaker.Search.CooldownSec = 30
	}
	if c.Breaker.Suggest.FailureThreshold <= 0 {
		c.Breaker.Suggest.FailureThreshold = 8
	}
	if c.Breaker.Suggest.WindowSec <= 0 {
		c.Breaker.Suggest.WindowSec = 60
	}
	if c.Breaker.Suggest.CooldownSec <= 0 {
		c.Breaker.Suggest.CooldownSec = 15
	}
	if c.RateLimit.Anonymous <= 0 {
		c.RateLimit.Anonymous = 60
	}
	if c.RateLimit.Authenticated <= 0 {
		c.RateLimit.Authenticated = 120
	}
	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = 60
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 50
	}
	if c.Suggest.MinResults <= 0 {
		c.Suggest.MinResults = 3
	}
	if c.Suggest.MaxResults <= 0 {
		c.Suggest.MaxResults = 8
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf(
			"search.default_page_size %d exceeds search.max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize,
		)
	}
	if c.Suggest.MinResults > c.Suggest.MaxResults {
		return fmt.Errorf(
			"suggest.min_results %d exceeds suggest.max_results %d",
			c.Suggest.MinResults, c.Suggest.MaxResults,
		)
	}
	if c.RateLimit.Authenticated < c.RateLimit.Anonymous {
		return fmt.Errorf(
			"rate_limit.authenticated_per_window %d is below rate_limit.anonymous_per_window %d",
			c.RateLimit.Authenticated, c.RateLimit.Anonymous,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
