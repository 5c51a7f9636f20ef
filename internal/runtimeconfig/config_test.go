package runtimeconfig_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/goliatone/go-pageblocks/internal/runtimeconfig"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := runtimeconfig.DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRequiresDefaultLocaleInLanguages(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Languages = []string{"es", "fr"}

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrDefaultLocaleNotDeclared) {
		t.Fatalf("expected ErrDefaultLocaleNotDeclared, got %v", err)
	}
}

func TestValidateRejectsDuplicateLanguages(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Languages = []string{"en", "es", "en"}

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLanguageDuplicated) {
		t.Fatalf("expected ErrLanguageDuplicated, got %v", err)
	}
}

func TestValidateStorage(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Driver = "sqlite"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrStorageDSNRequired) {
		t.Fatalf("expected ErrStorageDSNRequired, got %v", err)
	}

	cfg.Storage.Driver = "mongo"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrStorageDriverUnknown) {
		t.Fatalf("expected ErrStorageDriverUnknown, got %v", err)
	}
}

func TestValidateLogging(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "syslog"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingProviderUnknown) {
		t.Fatalf("expected ErrLoggingProviderUnknown, got %v", err)
	}

	cfg = runtimeconfig.DefaultConfig()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingFormatInvalid) {
		t.Fatalf("expected ErrLoggingFormatInvalid, got %v", err)
	}
}

func TestValidateCacheTTL(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.TTL = 0
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrCacheTTLInvalid) {
		t.Fatalf("expected ErrCacheTTLInvalid, got %v", err)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pageblocks.yaml")
	doc := `
default_locale: es
languages: [es, en]
blocks: [HTMLBlock, ContainerBlock]
storage:
  driver: sqlite
  dsn: "file::memory:"
cache:
  enabled: true
  ttl: 30s
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := runtimeconfig.DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.DefaultLocale != "es" || !slices.Equal(cfg.Languages, []string{"es", "en"}) {
		t.Fatalf("unexpected locales %q %v", cfg.DefaultLocale, cfg.Languages)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Cache.TTL != 30*time.Second {
		t.Fatalf("unexpected storage/cache %+v %+v", cfg.Storage, cfg.Cache)
	}
	if cfg.Assets.Dir != "media" {
		t.Fatalf("expected assets default to survive, got %q", cfg.Assets.Dir)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadEnvOverridesFields(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	err := cfg.LoadEnvFrom(map[string]string{
		"PAGEBLOCKS_LANGUAGES":      "en,de",
		"PAGEBLOCKS_STORAGE_DRIVER": "postgres",
		"PAGEBLOCKS_STORAGE_DSN":    "postgres://localhost/pages",
		"PAGEBLOCKS_LOGGING_LEVEL":  "debug",
	})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if !slices.Equal(cfg.Languages, []string{"en", "de"}) {
		t.Fatalf("unexpected languages %v", cfg.Languages)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.DefaultLocale != "en" {
		t.Fatalf("unset variables must keep defaults, got %q", cfg.DefaultLocale)
	}
}

func TestLocalesPutsDefaultFirst(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.DefaultLocale = "es"
	cfg.Languages = []string{"en", "es", "fr"}

	if got := cfg.Locales(); !slices.Equal(got, []string{"es", "en", "fr"}) {
		t.Fatalf("unexpected locales %v", got)
	}
}
