package pageblocks

import "github.com/goliatone/go-pageblocks/internal/runtimeconfig"

var (
	ErrDefaultLocaleRequired    = runtimeconfig.ErrDefaultLocaleRequired
	ErrDefaultLocaleNotDeclared = runtimeconfig.ErrDefaultLocaleNotDeclared
	ErrLanguageDuplicated       = runtimeconfig.ErrLanguageDuplicated
	ErrStorageDriverUnknown     = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired       = runtimeconfig.ErrStorageDSNRequired
	ErrCacheTTLInvalid          = runtimeconfig.ErrCacheTTLInvalid
	ErrAssetsDirRequired        = runtimeconfig.ErrAssetsDirRequired
	ErrLoggingProviderUnknown   = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid      = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid     = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config          = runtimeconfig.Config
	StorageConfig   = runtimeconfig.StorageConfig
	CacheConfig     = runtimeconfig.CacheConfig
	AssetsConfig    = runtimeconfig.AssetsConfig
	TemplatesConfig = runtimeconfig.TemplatesConfig
	MarkdownConfig  = runtimeconfig.MarkdownConfig
	LoggingConfig   = runtimeconfig.LoggingConfig
)

// DefaultConfig returns the in-memory, single language configuration.
func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig starts from DefaultConfig, applies the YAML file at path when
// path is not empty, then PAGEBLOCKS_* environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := runtimeconfig.DefaultConfig()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
