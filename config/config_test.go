package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

func TestLoad(t *testing.T) {
	// Run from an empty directory so no stray config.yaml or .env is picked up
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(t.TempDir())

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Store.Driver != StoreSQLite {
			t.Errorf("Store.Driver = %s, want sqlite", cfg.Store.Driver)
		}
		if cfg.Matching.SimilarityThreshold != 0.85 {
			t.Errorf("Matching.SimilarityThreshold = %v, want 0.85", cfg.Matching.SimilarityThreshold)
		}
		if cfg.Matching.Marker() != '$' {
			t.Errorf("Matching.Marker() = %q, want '$'", cfg.Matching.Marker())
		}
		if cfg.History.CarryForward != "off" {
			t.Errorf("History.CarryForward = %s, want off", cfg.History.CarryForward)
		}
		if cfg.Catalog.CacheTTL != 10*time.Minute {
			t.Errorf("Catalog.CacheTTL = %v, want 10m", cfg.Catalog.CacheTTL)
		}
		if cfg.Catalog.Timeout != 30*time.Second {
			t.Errorf("Catalog.Timeout = %v, want 30s", cfg.Catalog.Timeout)
		}
		if cfg.RateLimit.PerIP != 30 {
			t.Errorf("RateLimit.PerIP = %d, want 30", cfg.RateLimit.PerIP)
		}
	})

	t.Run("default targets cover the tracked build", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if len(cfg.Targets) != 9 {
			t.Fatalf("len(Targets) = %d, want 9", len(cfg.Targets))
		}
		byName := make(map[string]domain.TargetDescriptor)
		for _, target := range cfg.Targets {
			byName[target.Name] = target
		}
		if byName["RAM"].TieBreak != domain.TieBreakShortestText {
			t.Errorf("RAM tie break = %q, want shortest_text", byName["RAM"].TieBreak)
		}
		if byName["Case"].TieBreak != domain.TieBreakHighestPrice {
			t.Errorf("Case tie break = %q, want highest_price", byName["Case"].TieBreak)
		}
		if byName["CPU"].Keyword != "Core Ultra 7 265KF" {
			t.Errorf("CPU keyword = %q", byName["CPU"].Keyword)
		}

		if len(cfg.Vendors) != 2 || cfg.Vendors[0].Kind != VendorOptionList || cfg.Vendors[1].Kind != VendorSearch {
			t.Errorf("Vendors = %+v, want Coolpc option_list and Sinya search", cfg.Vendors)
		}
		if cfg.Vendors[0].Charset != "big5" {
			t.Errorf("Coolpc charset = %q, want big5", cfg.Vendors[0].Charset)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		t.Setenv("PRICELENS_SERVER_PORT", "9090")
		t.Setenv("PRICELENS_SERVER_ENVIRONMENT", "production")
		t.Setenv("PRICELENS_STORE_DRIVER", "memory")
		t.Setenv("PRICELENS_MATCHING_SIMILARITY_THRESHOLD", "0.9")
		t.Setenv("PRICELENS_HISTORY_CARRY_FORWARD", "field")
		t.Setenv("PRICELENS_CATALOG_CACHE_TTL", "1h")
		t.Setenv("PRICELENS_RATELIMIT_PER_IP", "200")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Store.Driver != StoreMemory {
			t.Errorf("Store.Driver = %s, want memory", cfg.Store.Driver)
		}
		if cfg.Matching.SimilarityThreshold != 0.9 {
			t.Errorf("Matching.SimilarityThreshold = %v, want 0.9", cfg.Matching.SimilarityThreshold)
		}
		if cfg.History.CarryForward != "field" {
			t.Errorf("History.CarryForward = %s, want field", cfg.History.CarryForward)
		}
		if cfg.Catalog.CacheTTL != time.Hour {
			t.Errorf("Catalog.CacheTTL = %v, want 1h", cfg.Catalog.CacheTTL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("fails validation for invalid store driver", func(t *testing.T) {
		t.Setenv("PRICELENS_STORE_DRIVER", "postgres")

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid store driver")
		}
	})

	t.Run("fails validation for unknown carry forward mode", func(t *testing.T) {
		t.Setenv("PRICELENS_HISTORY_CARRY_FORWARD", "always")

		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "carry_forward") {
			t.Errorf("Load() error = %v, want carry_forward error", err)
		}
	})
}

func TestLoadFile(t *testing.T) {
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(t.TempDir())

	t.Run("reads targets and vendors from yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pricelens.yaml")
		content := `
store:
  driver: memory
matching:
  currency_marker: "¥"
targets:
  - name: GPU
    keyword: RTX 5090
    tie_break: highest_price
vendors:
  - name: Local
    kind: file
    path: /tmp/listings.txt
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v, want nil", err)
		}

		if len(cfg.Targets) != 1 || cfg.Targets[0].Name != "GPU" || cfg.Targets[0].TieBreak != domain.TieBreakHighestPrice {
			t.Errorf("Targets = %+v", cfg.Targets)
		}
		if len(cfg.Vendors) != 1 || cfg.Vendors[0].Kind != VendorFile {
			t.Errorf("Vendors = %+v", cfg.Vendors)
		}
		if cfg.Matching.Marker() != '¥' {
			t.Errorf("Matching.Marker() = %q, want '¥'", cfg.Matching.Marker())
		}
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil {
			t.Error("LoadFile() error = nil, want error for missing file")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		envContent := `
# Comment line
TEST_VAR_1=value1

# TEST_COMMENTED=should_not_load
TEST_VAR_2=value2
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_COMMENTED")
		defer os.Unsetenv("TEST_VAR_1")
		defer os.Unsetenv("TEST_VAR_2")

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_COMMENTED") != "" {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		t.Setenv("TEST_OVERRIDE", "existing-value")
		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}
		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})
}

func validConfig() *Config {
	return &Config{
		Store:    StoreConfig{Driver: StoreSQLite, Path: "pricelens.db"},
		Matching: MatchingConfig{SimilarityThreshold: 0.85, CurrencyMarker: "$"},
		History:  HistoryConfig{CarryForward: "off"},
		Targets: []domain.TargetDescriptor{
			{Name: "CPU", Keyword: "Core Ultra 7 265KF"},
		},
		Vendors: []VendorConfig{
			{Name: "Coolpc", Kind: VendorOptionList, URL: "https://www.coolpc.com.tw/evaluate.php"},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(validConfig()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }},
		{"threshold of one", func(c *Config) { c.Matching.SimilarityThreshold = 1 }},
		{"threshold of zero", func(c *Config) { c.Matching.SimilarityThreshold = 0 }},
		{"multi character marker", func(c *Config) { c.Matching.CurrencyMarker = "NT$" }},
		{"unknown carry forward", func(c *Config) { c.History.CarryForward = "always" }},
		{"no targets", func(c *Config) { c.Targets = nil }},
		{"blank keyword", func(c *Config) { c.Targets[0].Keyword = " " }},
		{"duplicate target", func(c *Config) { c.Targets = append(c.Targets, c.Targets[0]) }},
		{"bad tie break", func(c *Config) { c.Targets[0].TieBreak = "cheapest" }},
		{"vendor without name", func(c *Config) { c.Vendors[0].Name = "" }},
		{"duplicate vendor", func(c *Config) { c.Vendors = append(c.Vendors, c.Vendors[0]) }},
		{"unknown vendor kind", func(c *Config) { c.Vendors[0].Kind = "api" }},
		{"search without url", func(c *Config) { c.Vendors[0] = VendorConfig{Name: "Sinya", Kind: VendorSearch} }},
		{"file without path", func(c *Config) { c.Vendors[0] = VendorConfig{Name: "Local", Kind: VendorFile} }},
	}

	for _, tc := range testCases {
		t.Run("fails for "+tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Error("validate() error = nil, want error")
			}
		})
	}

	t.Run("memory store needs no path", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store = StoreConfig{Driver: StoreMemory}
		if err := validate(cfg); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})
}

func TestInitLogger(t *testing.T) {
	if err := InitLogger(LogConfig{Level: "debug", Format: "console"}); err != nil {
		t.Errorf("InitLogger() error = %v, want nil", err)
	}
	if err := InitLogger(LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("InitLogger() error = nil, want error for unknown level")
	}
}
