package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pricelens/backend/internal/domain"
)

// Vendor kinds
const (
	VendorOptionList = "option_list"
	VendorSearch     = "search"
	VendorFile       = "file"
)

// Store drivers
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Store     StoreConfig               `mapstructure:"store"`
	Matching  MatchingConfig            `mapstructure:"matching"`
	History   HistoryConfig             `mapstructure:"history"`
	Catalog   CatalogConfig             `mapstructure:"catalog"`
	RateLimit RateLimitConfig           `mapstructure:"ratelimit"`
	Log       LogConfig                 `mapstructure:"log"`
	Targets   []domain.TargetDescriptor `mapstructure:"targets"`
	Vendors   []VendorConfig            `mapstructure:"vendors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig selects the history backend
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "memory"
	Path   string `mapstructure:"path"`
}

// MatchingConfig tunes catalog matching
type MatchingConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	CurrencyMarker      string  `mapstructure:"currency_marker"`
	MaxWorkers          int     `mapstructure:"max_workers"`
}

// Marker returns the currency marker as a rune
func (m MatchingConfig) Marker() rune {
	r, _ := utf8.DecodeRuneInString(m.CurrencyMarker)
	if r == utf8.RuneError {
		return '$'
	}
	return r
}

// HistoryConfig holds history read options
type HistoryConfig struct {
	CarryForward string `mapstructure:"carry_forward"` // "off", "record" or "field"
	ExportPath   string `mapstructure:"export_path"`
}

// CatalogConfig holds vendor fetch configuration
type CatalogConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// VendorConfig describes one catalog source
type VendorConfig struct {
	Name          string `mapstructure:"name"`
	Kind          string `mapstructure:"kind"`
	URL           string `mapstructure:"url"`
	Charset       string `mapstructure:"charset"`
	Path          string `mapstructure:"path"`
	Selector      string `mapstructure:"selector"`
	QueryParam    string `mapstructure:"query_param"`
	NameSelector  string `mapstructure:"name_selector"`
	PriceSelector string `mapstructure:"price_selector"`
}

// Load loads configuration from environment variables and the default config file locations
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from the given file, or from the default locations when
// path is empty. Environment variables override file values.
func LoadFile(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/pricelens/")
	}

	// Environment variable settings
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional unless named explicitly
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, eris.Wrap(err, "config: decode")
	}

	if err := validate(&config); err != nil {
		return nil, eris.Wrap(err, "config: invalid configuration")
	}

	return &config, nil
}

// loadEnvFile exports variables from ./.env that are not already set in the environment.
// A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return eris.Wrap(err, "config: read .env")
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return eris.Wrapf(err, "config: set %s", name)
		}
	}
	return nil
}

// defaultTargets is the build tracked out of the box
var defaultTargets = []map[string]any{
	{"name": "CPU", "keyword": "Core Ultra 7 265KF"},
	{"name": "MB", "keyword": "TUF GAMING Z890-PRO WIFI"},
	{"name": "RAM", "keyword": "LancerBlade 32G", "tie_break": "shortest_text"},
	{"name": "SSD", "keyword": "T700 2TB"},
	{"name": "Cooler", "keyword": "TUF GAMING LC III 360 ARGB"},
	{"name": "VGA", "keyword": "TUF-RTX5070Ti-O16G"},
	{"name": "Case", "keyword": "GT502 Horizon", "tie_break": "highest_price"},
	{"name": "PSU", "keyword": "TITAN GOLD 1000W"},
	{"name": "OS", "keyword": "Windows 11 Pro"},
}

var defaultVendors = []map[string]any{
	{"name": "Coolpc", "kind": VendorOptionList, "url": "https://www.coolpc.com.tw/evaluate.php", "charset": "big5"},
	{"name": "Sinya", "kind": VendorSearch, "url": "https://www.sinya.com.tw/prod/search"},
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Store defaults
	v.SetDefault("store.driver", StoreSQLite)
	v.SetDefault("store.path", "pricelens.db")

	// Matching defaults
	v.SetDefault("matching.similarity_threshold", 0.85)
	v.SetDefault("matching.currency_marker", "$")
	v.SetDefault("matching.max_workers", 0)

	// History defaults
	v.SetDefault("history.carry_forward", string(domain.CarryOff))
	v.SetDefault("history.export_path", "")

	// Catalog defaults
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.requests_per_second", 1.0)
	v.SetDefault("catalog.burst", 3)
	v.SetDefault("catalog.cache_ttl", "10m")
	v.SetDefault("catalog.user_agent", "")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 30)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("targets", defaultTargets)
	v.SetDefault("vendors", defaultVendors)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Store.Driver != StoreSQLite && config.Store.Driver != StoreMemory {
		return eris.Errorf("store driver must be 'sqlite' or 'memory', got: %s", config.Store.Driver)
	}
	if config.Store.Driver == StoreSQLite && config.Store.Path == "" {
		return eris.New("store path is required when store driver is 'sqlite'")
	}

	if t := config.Matching.SimilarityThreshold; t <= 0 || t >= 1 {
		return eris.Errorf("matching similarity threshold must be in (0, 1), got: %v", t)
	}
	if utf8.RuneCountInString(config.Matching.CurrencyMarker) != 1 {
		return eris.Errorf("matching currency marker must be a single character, got: %q", config.Matching.CurrencyMarker)
	}

	if !domain.CarryForward(config.History.CarryForward).Valid() {
		return eris.Errorf("history carry_forward must be 'off', 'record' or 'field', got: %s", config.History.CarryForward)
	}

	if len(config.Targets) == 0 {
		return eris.New("at least one target is required")
	}
	names := make(map[string]bool, len(config.Targets))
	for i, t := range config.Targets {
		if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Keyword) == "" {
			return eris.Errorf("target %d needs a name and a keyword", i)
		}
		if names[t.Name] {
			return eris.Errorf("duplicate target name: %s", t.Name)
		}
		names[t.Name] = true
		if !t.TieBreak.Valid() {
			return eris.Errorf("target %s: tie_break must be 'shortest_text' or 'highest_price', got: %s", t.Name, t.TieBreak)
		}
	}

	vendors := make(map[string]bool, len(config.Vendors))
	for i, vc := range config.Vendors {
		if vc.Name == "" {
			return eris.Errorf("vendor %d needs a name", i)
		}
		if vendors[vc.Name] {
			return eris.Errorf("duplicate vendor name: %s", vc.Name)
		}
		vendors[vc.Name] = true

		switch vc.Kind {
		case VendorOptionList, VendorSearch:
			if vc.URL == "" {
				return eris.Errorf("vendor %s: url is required for kind %s", vc.Name, vc.Kind)
			}
		case VendorFile:
			if vc.Path == "" {
				return eris.Errorf("vendor %s: path is required for kind file", vc.Name)
			}
		default:
			return eris.Errorf("vendor %s: kind must be 'option_list', 'search' or 'file', got: %s", vc.Name, vc.Kind)
		}
	}

	return nil
}

// InitLogger builds the global zap logger from config
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
