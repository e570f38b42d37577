package config

import "testing"

func TestValidate_InvalidFuzzyPreset(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "memory"},
		Search:   SearchConfig{FuzzyPreset: "sloppy", DefaultPageSize: 20, MaxPageSize: 100},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid fuzzy preset")
	}

	expected := `search.fuzzy_preset must be one of default, strict, relaxed, exact, got "sloppy"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidFuzzyPresets(t *testing.T) {
	validPresets := []string{"default", "strict", "relaxed", "exact"}

	for _, preset := range validPresets {
		t.Run("preset="+preset, func(t *testing.T) {
			cfg := Config{
				HTTP:     HTTPConfig{Port: 8080},
				Database: DatabaseConfig{Driver: "memory"},
				Search:   SearchConfig{FuzzyPreset: preset, DefaultPageSize: 20, MaxPageSize: 100},
			}
			cfg.ApplyDefaults()

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid preset %q: %v", preset, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 0}}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_RedisDriverRequiresAddrs(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "redis"},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis driver without addrs")
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "sqlite"},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown database driver")
	}
}

func TestValidate_PageSizeOrdering(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "memory"},
		Search:   SearchConfig{FuzzyPreset: "default", DefaultPageSize: 50, MaxPageSize: 20},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when max_page_size < default_page_size")
	}
}

func TestValidate_ThresholdOrdering(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "memory"},
		Monitor:  MonitorConfig{ErrorRateWarnPct: 20, ErrorRateCritPct: 5},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when error rate crit threshold is below warn")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("expected Driver='memory', got %q", cfg.Database.Driver)
	}
	if cfg.Search.TimeoutMs != 5000 {
		t.Errorf("expected TimeoutMs=5000, got %d", cfg.Search.TimeoutMs)
	}
	if cfg.Search.FuzzyPreset != "default" {
		t.Errorf("expected FuzzyPreset='default', got %q", cfg.Search.FuzzyPreset)
	}
	if cfg.Search.DefaultPageSize != 20 {
		t.Errorf("expected DefaultPageSize=20, got %d", cfg.Search.DefaultPageSize)
	}
	if cfg.Search.MaxPageSize != 100 {
		t.Errorf("expected MaxPageSize=100, got %d", cfg.Search.MaxPageSize)
	}
	if cfg.Cache.MaxEntries != 1000 {
		t.Errorf("expected MaxEntries=1000, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.TTLSec != 300 {
		t.Errorf("expected TTLSec=300, got %d", cfg.Cache.TTLSec)
	}
	if cfg.Cache.PrefetchThreshold != 3 {
		t.Errorf("expected PrefetchThreshold=3, got %d", cfg.Cache.PrefetchThreshold)
	}
	if cfg.Suggest.HistorySize != 20 {
		t.Errorf("expected HistorySize=20, got %d", cfg.Suggest.HistorySize)
	}
	if cfg.Monitor.ErrorRateCritPct != 15 {
		t.Errorf("expected ErrorRateCritPct=15, got %v", cfg.Monitor.ErrorRateCritPct)
	}
	if cfg.Storage.KeyPrefix != "searchkit:" {
		t.Errorf("expected KeyPrefix='searchkit:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Search:  SearchConfig{TimeoutMs: 2500, FuzzyPreset: "strict", DefaultPageSize: 50, MaxPageSize: 500},
		Cache:   CacheConfig{MaxEntries: 100, TTLSec: 60, PrefetchThreshold: 5},
		Storage: StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Search.TimeoutMs != 2500 {
		t.Errorf("expected TimeoutMs=2500, got %d", cfg.Search.TimeoutMs)
	}
	if cfg.Search.FuzzyPreset != "strict" {
		t.Errorf("expected FuzzyPreset='strict', got %q", cfg.Search.FuzzyPreset)
	}
	if cfg.Cache.MaxEntries != 100 {
		t.Errorf("expected MaxEntries=100, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}
