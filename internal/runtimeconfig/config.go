package runtimeconfig

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment variable read by LoadEnv.
const EnvPrefix = "PAGEBLOCKS_"

var (
	ErrDefaultLocaleRequired    = errors.New("pageblocks config: default locale is required")
	ErrDefaultLocaleNotDeclared = errors.New("pageblocks config: default locale must be listed in languages")
	ErrLanguageDuplicated       = errors.New("pageblocks config: language listed more than once")
	ErrStorageDriverUnknown     = errors.New("pageblocks config: storage driver is invalid")
	ErrStorageDSNRequired       = errors.New("pageblocks config: storage dsn is required for sql drivers")
	ErrCacheTTLInvalid          = errors.New("pageblocks config: cache ttl must be positive when cache is enabled")
	ErrAssetsDirRequired        = errors.New("pageblocks config: assets directory is required")
	ErrLoggingProviderUnknown   = errors.New("pageblocks config: logging provider is invalid")
	ErrLoggingLevelInvalid      = errors.New("pageblocks config: logging level is invalid")
	ErrLoggingFormatInvalid     = errors.New("pageblocks config: logging format is invalid")
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config aggregates everything the pageblocks module needs at startup. It can
// be populated from a YAML file, PAGEBLOCKS_* environment variables, or both.
type Config struct {
	DefaultLocale string          `yaml:"default_locale" env:"DEFAULT_LOCALE"`
	Languages     []string        `yaml:"languages" env:"LANGUAGES" envSeparator:","`
	Blocks        []string        `yaml:"blocks" env:"BLOCKS" envSeparator:","`
	Storage       StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Cache         CacheConfig     `yaml:"cache" envPrefix:"CACHE_"`
	Assets        AssetsConfig    `yaml:"assets" envPrefix:"ASSETS_"`
	Templates     TemplatesConfig `yaml:"templates" envPrefix:"TEMPLATES_"`
	Markdown      MarkdownConfig  `yaml:"markdown" envPrefix:"MARKDOWN_"`
	Logging       LoggingConfig   `yaml:"logging" envPrefix:"LOGGING_"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"ENABLED"`
	TTL     time.Duration `yaml:"ttl" env:"TTL"`
}

// AssetsConfig points the filesystem asset store at a directory and the public
// URL prefix it is served from.
type AssetsConfig struct {
	Dir     string `yaml:"dir" env:"DIR"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
}

// TemplatesConfig optionally overrides the embedded block templates.
type TemplatesConfig struct {
	Dir string `yaml:"dir" env:"DIR"`
}

type MarkdownConfig struct {
	Extensions []string `yaml:"extensions" env:"EXTENSIONS" envSeparator:","`
	HardWraps  bool     `yaml:"hard_wraps" env:"HARD_WRAPS"`
	SafeMode   bool     `yaml:"safe_mode" env:"SAFE_MODE"`
}

type LoggingConfig struct {
	Provider  string   `yaml:"provider" env:"PROVIDER"`
	Level     string   `yaml:"level" env:"LEVEL"`
	Format    string   `yaml:"format" env:"FORMAT"`
	AddSource bool     `yaml:"add_source" env:"ADD_SOURCE"`
	Focus     []string `yaml:"focus" env:"FOCUS" envSeparator:","`
}

func DefaultConfig() Config {
	return Config{
		DefaultLocale: "en",
		Languages:     []string{"en"},
		Storage: StorageConfig{
			Driver: DriverMemory,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     time.Minute,
		},
		Assets: AssetsConfig{
			Dir:     "media",
			BaseURL: "/media/",
		},
		Markdown: MarkdownConfig{
			Extensions: []string{"gfm", "linkify", "tasklist"},
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// LoadFile decodes a YAML document at path over cfg. Keys missing from the
// file keep their current values.
func (cfg *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("pageblocks config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("pageblocks config: decode %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays PAGEBLOCKS_* environment variables onto cfg. Unset
// variables leave fields untouched.
func (cfg *Config) LoadEnv() error {
	return cfg.loadEnv(nil)
}

func (cfg *Config) loadEnv(environment map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("pageblocks config: env: %w", err)
	}
	return nil
}

// Locales returns Languages with DefaultLocale first and duplicates removed.
func (cfg Config) Locales() []string {
	out := make([]string, 0, len(cfg.Languages)+1)
	if def := strings.TrimSpace(cfg.DefaultLocale); def != "" {
		out = append(out, def)
	}
	for _, lang := range cfg.Languages {
		lang = strings.TrimSpace(lang)
		if lang != "" && !slices.Contains(out, lang) {
			out = append(out, lang)
		}
	}
	return out
}

func (cfg Config) Validate() error {
	def := strings.TrimSpace(cfg.DefaultLocale)
	if def == "" {
		return ErrDefaultLocaleRequired
	}
	seen := map[string]bool{}
	for _, lang := range cfg.Languages {
		lang = strings.TrimSpace(lang)
		if seen[lang] {
			return fmt.Errorf("%w: %s", ErrLanguageDuplicated, lang)
		}
		seen[lang] = true
	}
	if len(cfg.Languages) > 0 && !seen[def] {
		return fmt.Errorf("%w: %s", ErrDefaultLocaleNotDeclared, def)
	}

	switch driver := normalize(cfg.Storage.Driver); driver {
	case "", DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("%w: %s", ErrStorageDSNRequired, driver)
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, driver)
	}

	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		return ErrCacheTTLInvalid
	}
	if strings.TrimSpace(cfg.Assets.Dir) == "" {
		return ErrAssetsDirRequired
	}

	switch provider := normalize(cfg.Logging.Provider); provider {
	case "", "console", "gologger":
	default:
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := normalize(cfg.Logging.Level); level != "" && !slices.Contains(logLevels, level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if format := normalize(cfg.Logging.Format); format != "" && !slices.Contains(logFormats, format) {
		return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
	}
	return nil
}

var (
	logLevels  = []string{"trace", "debug", "info", "warn", "warning", "error", "fatal"}
	logFormats = []string{"json", "console", "pretty"}
)

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
