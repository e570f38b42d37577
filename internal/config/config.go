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

// Config holds the searchkit API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Search   SearchConfig   `yaml:"search"`
	Cache    CacheConfig    `yaml:"cache"`
	Suggest  SuggestConfig  `yaml:"suggest"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for the admin endpoints.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the suggestion persistence store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds query execution settings.
type SearchConfig struct {
	TimeoutMs       int    `yaml:"timeout_ms"`
	FuzzyPreset     string `yaml:"fuzzy_preset"` // default, strict, relaxed, exact
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	MaxEntries        int `yaml:"max_entries"`
	TTLSec            int `yaml:"ttl_sec"`
	PrefetchThreshold int `yaml:"prefetch_threshold"`
}

// SuggestConfig holds suggestion engine settings.
type SuggestConfig struct {
	HistorySize  int      `yaml:"history_size"`
	PopularTerms []string `yaml:"popular_terms"`
}

// MonitorConfig holds performance alert thresholds.
type MonitorConfig struct {
	ResponseTimeWarnMs  float64 `yaml:"response_time_warn_ms"`
	ResponseTimeCritMs  float64 `yaml:"response_time_crit_ms"`
	ErrorRateWarnPct    float64 `yaml:"error_rate_warn_pct"`
	ErrorRateCritPct    float64 `yaml:"error_rate_crit_pct"`
	CacheHitRateWarnPct float64 `yaml:"cache_hit_rate_warn_pct"`
	CacheHitRateCritPct float64 `yaml:"cache_hit_rate_crit_pct"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
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
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.TimeoutMs <= 0 {
		c.Search.TimeoutMs = 5000
	}
	if c.Search.FuzzyPreset == "" {
		c.Search.FuzzyPreset = "default"
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 1000
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.PrefetchThreshold <= 0 {
		c.Cache.PrefetchThreshold = 3
	}
	if c.Suggest.HistorySize <= 0 {
		c.Suggest.HistorySize = 20
	}
	if c.Monitor.ResponseTimeWarnMs <= 0 {
		c.Monitor.ResponseTimeWarnMs = 2000
	}
	if c.Monitor.ResponseTimeCritMs <= 0 {
		c.Monitor.ResponseTimeCritMs = 5000
	}
	if c.Monitor.ErrorRateWarnPct <= 0 {
		c.Monitor.ErrorRateWarnPct = 5
	}
	if c.Monitor.ErrorRateCritPct <= 0 {
		c.Monitor.ErrorRateCritPct = 15
	}
	if c.Monitor.CacheHitRateWarnPct <= 0 {
		c.Monitor.CacheHitRateWarnPct = 70
	}
	if c.Monitor.CacheHitRateCritPct <= 0 {
		c.Monitor.CacheHitRateCritPct = 50
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "searchkit:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "memory", "redis":
		// ok
	default:
		return fmt.Errorf("database.driver must be \"memory\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Database.Driver == "redis" && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required for the redis driver")
	}
	switch c.Search.FuzzyPreset {
	case "default", "strict", "relaxed", "exact":
		// ok
	default:
		return fmt.Errorf(
			"search.fuzzy_preset must be one of default, strict, relaxed, exact, got %q",
			c.Search.FuzzyPreset,
		)
	}
	if c.Search.MaxPageSize < c.Search.DefaultPageSize {
		return fmt.Errorf(
			"search.max_page_size (%d) must not be below search.default_page_size (%d)",
			c.Search.MaxPageSize, c.Search.DefaultPageSize,
		)
	}
	if c.Monitor.ResponseTimeCritMs < c.Monitor.ResponseTimeWarnMs {
		return fmt.Errorf("monitor.response_time_crit_ms must not be below monitor.response_time_warn_ms")
	}
	if c.Monitor.ErrorRateCritPct < c.Monitor.ErrorRateWarnPct {
		return fmt.Errorf("monitor.error_rate_crit_pct must not be below monitor.error_rate_warn_pct")
	}
	if c.Monitor.CacheHitRateCritPct > c.Monitor.CacheHitRateWarnPct {
		return fmt.Errorf("monitor.cache_hit_rate_crit_pct must not be above monitor.cache_hit_rate_warn_pct")
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
