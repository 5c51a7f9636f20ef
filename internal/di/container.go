// Package di wires the pageblocks services from a runtime configuration.
package di

import (
	"context"
	"fmt"
	"strings"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-pageblocks/internal/blocks"
	"github.com/goliatone/go-pageblocks/internal/commands"
	markdowncmd "github.com/goliatone/go-pageblocks/internal/commands/markdown"
	pagescmd "github.com/goliatone/go-pageblocks/internal/commands/pages"
	"github.com/goliatone/go-pageblocks/internal/logging"
	"github.com/goliatone/go-pageblocks/internal/logging/console"
	"github.com/goliatone/go-pageblocks/internal/logging/gologger"
	"github.com/goliatone/go-pageblocks/internal/markdown"
	"github.com/goliatone/go-pageblocks/internal/media"
	"github.com/goliatone/go-pageblocks/internal/pages"
	"github.com/goliatone/go-pageblocks/internal/render"
	"github.com/goliatone/go-pageblocks/internal/runtimeconfig"
	"github.com/goliatone/go-pageblocks/internal/storage"
	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

// Container holds the wired services. Memory storage is used unless a SQL
// driver is configured or a bun.DB is injected.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	bunDB          *bun.DB
	ownsDB         bool

	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	assets   interfaces.AssetStore
	catalog  media.Catalog
	images   *media.Service
	markdown *markdown.Renderer
	renderer interfaces.TemplateRenderer

	registry   *blocks.Registry
	blockStore blocks.Store
	processor  *blocks.Processor
	pageRepo   pages.PageRepository
	pageSvc    *pages.Service

	savePage       *pagescmd.SavePageHandler
	deletePage     *pagescmd.DeletePageHandler
	importMarkdown *markdowncmd.ImportMarkdownHandler
}

// Option mutates the container before services are built.
type Option func(*Container)

func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithBunDB injects a database. The caller keeps ownership of it.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

func WithTemplate(tr interfaces.TemplateRenderer) Option {
	return func(c *Container) {
		c.renderer = tr
	}
}

func WithAssetStore(store interfaces.AssetStore) Option {
	return func(c *Container) {
		c.assets = store
	}
}

func NewContainer(ctx context.Context, cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{Config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	if err := c.configureStorage(ctx); err != nil {
		return nil, err
	}
	if err := c.configureCacheDefaults(); err != nil {
		c.Close()
		return nil, err
	}
	c.configureRepositories()
	if err := c.configureBlocks(); err != nil {
		c.Close()
		return nil, err
	}
	c.configureServices()

	logging.ModuleLogger(c.loggerProvider, logging.RootModule).Info("container.ready",
		"driver", c.driver(),
		"cache", c.cacheService != nil,
		"languages", strings.Join(c.pageSvc.Languages(), ","),
	)
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	cfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		opts := console.Options{}
		if level, ok := console.ParseLevel(cfg.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureStorage(ctx context.Context) error {
	if c.bunDB == nil {
		switch c.driver() {
		case runtimeconfig.DriverSQLite, runtimeconfig.DriverPostgres:
			db, err := storage.Open(c.driver(), c.Config.Storage.DSN)
			if err != nil {
				return err
			}
			c.bunDB = db
			c.ownsDB = true
		default:
			return nil
		}
	}
	if err := storage.Migrate(ctx, c.bunDB); err != nil {
		c.Close()
		return fmt.Errorf("di: migrate: %w", err)
	}
	return nil
}

func (c *Container) configureCacheDefaults() error {
	if !c.Config.Cache.Enabled || c.bunDB == nil {
		return nil
	}
	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.Config.Cache.TTL > 0 {
			cfg.TTL = c.Config.Cache.TTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err != nil {
			return fmt.Errorf("di: cache: %w", err)
		}
		c.cacheService = service
	}
	if c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
	return nil
}

func (c *Container) configureRepositories() {
	if c.assets == nil {
		c.assets = media.NewFilesystemStore(c.Config.Assets.Dir, c.Config.Assets.BaseURL)
	}
	if c.bunDB == nil {
		c.catalog = media.NewMemoryCatalog()
		c.blockStore = blocks.NewMemoryStore()
		c.pageRepo = pages.NewMemoryPageRepository()
		return
	}
	c.catalog = media.NewBunCatalogWithCache(c.bunDB, c.cacheService, c.keySerializer)
	c.blockStore = blocks.NewBunStore(c.bunDB)
	c.pageRepo = pages.NewBunPageRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
}

func (c *Container) configureBlocks() error {
	c.images = media.NewService(c.catalog, c.assets,
		media.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.MediaModule)))

	mdCfg := c.Config.Markdown
	c.markdown = markdown.NewRenderer(markdown.Options{
		Extensions: mdCfg.Extensions,
		HardWraps:  mdCfg.HardWraps,
		SafeMode:   mdCfg.SafeMode,
	})

	registry, err := blocks.NewRegistry(c.Config.Blocks, blocks.DefaultTypes(c.images, c.markdown)...)
	if err != nil {
		return err
	}
	c.registry = registry

	if c.renderer == nil {
		var opts []render.Option
		if dir := strings.TrimSpace(c.Config.Templates.Dir); dir != "" {
			opts = append(opts, render.WithDir(dir))
		}
		renderer, err := render.New(opts...)
		if err != nil {
			return err
		}
		c.renderer = renderer
	}

	c.processor = blocks.NewProcessor(c.registry, c.blockStore,
		blocks.WithRenderer(c.renderer),
		blocks.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.BlocksModule)),
	)
	return nil
}

func (c *Container) configureServices() {
	c.pageSvc = pages.NewService(c.pageRepo, c.processor,
		pages.WithLanguages(c.Config.DefaultLocale, c.Config.Locales()...),
		pages.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.PagesModule)),
	)

	pagesLogger := commands.CommandLogger(c.loggerProvider, "pages")
	c.savePage = pagescmd.NewSavePageHandler(c.pageSvc, pagesLogger)
	c.deletePage = pagescmd.NewDeletePageHandler(c.pageSvc, pagesLogger)
	c.importMarkdown = markdowncmd.NewImportMarkdownHandler(c.pageSvc, commands.CommandLogger(c.loggerProvider, "markdown"))
}

func (c *Container) driver() string {
	driver := strings.ToLower(strings.TrimSpace(c.Config.Storage.Driver))
	if driver == "" {
		return runtimeconfig.DriverMemory
	}
	return driver
}

// Close releases the database when the container opened it.
func (c *Container) Close() error {
	if c == nil || c.bunDB == nil || !c.ownsDB {
		return nil
	}
	err := c.bunDB.Close()
	c.bunDB = nil
	return err
}

func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }
func (c *Container) BunDB() *bun.DB                            { return c.bunDB }
func (c *Container) Registry() *blocks.Registry                { return c.registry }
func (c *Container) Processor() *blocks.Processor              { return c.processor }
func (c *Container) Images() *media.Service                    { return c.images }
func (c *Container) PageService() *pages.Service               { return c.pageSvc }

func (c *Container) SavePageHandler() *pagescmd.SavePageHandler     { return c.savePage }
func (c *Container) DeletePageHandler() *pagescmd.DeletePageHandler { return c.deletePage }

func (c *Container) ImportMarkdownHandler() *markdowncmd.ImportMarkdownHandler {
	return c.importMarkdown
}
