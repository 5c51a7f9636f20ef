package media

import (
	"context"
	"fmt"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Catalog persists image records.
type Catalog interface {
	Create(ctx context.Context, img *Image) (*Image, error)
	Get(ctx context.Context, id uuid.UUID) (*Image, error)
	Update(ctx context.Context, img *Image) (*Image, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type MemoryCatalog struct {
	mu     sync.RWMutex
	images map[uuid.UUID]*Image
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{images: make(map[uuid.UUID]*Image)}
}

func (c *MemoryCatalog) Create(_ context.Context, img *Image) (*Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[img.ID] = cloneImage(img)
	return cloneImage(img), nil
}

func (c *MemoryCatalog) Get(_ context.Context, id uuid.UUID) (*Image, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[id]
	if !ok {
		return nil, &NotFoundError{Key: id.String()}
	}
	return cloneImage(img), nil
}

func (c *MemoryCatalog) Update(_ context.Context, img *Image) (*Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[img.ID]; !ok {
		return nil, &NotFoundError{Key: img.ID.String()}
	}
	c.images[img.ID] = cloneImage(img)
	return cloneImage(img), nil
}

func (c *MemoryCatalog) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[id]; !ok {
		return &NotFoundError{Key: id.String()}
	}
	delete(c.images, id)
	return nil
}

// Len reports how many images are catalogued.
func (c *MemoryCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// BunCatalog stores images in block_images through go-repository-bun,
// optionally behind a read cache.
type BunCatalog struct {
	repo         repository.Repository[*Image]
	cacheService cache.CacheService
	cachePrefix  string
}

const imageNamespace = "block_image"

func NewBunCatalog(db *bun.DB) *BunCatalog {
	return NewBunCatalogWithCache(db, nil, nil)
}

func NewBunCatalogWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunCatalog {
	var base repository.Repository[*Image] = repository.MustNewRepository(db, repository.ModelHandlers[*Image]{
		NewRecord: func() *Image { return &Image{} },
		GetID: func(img *Image) uuid.UUID {
			return img.ID
		},
		SetID: func(img *Image, id uuid.UUID) {
			img.ID = id
		},
		GetIdentifier: func() string {
			return "path"
		},
		GetIdentifierValue: func(img *Image) string {
			return img.Path
		},
	})
	c := &BunCatalog{repo: base}
	if cacheService != nil && serializer != nil {
		c.repo = repositorycache.New(base, cacheService, serializer)
		c.cacheService = cacheService
		c.cachePrefix = imageNamespace + cache.KeySeparator
	}
	return c
}

func (c *BunCatalog) Create(ctx context.Context, img *Image) (*Image, error) {
	created, err := c.repo.Create(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("image catalog: create: %w", err)
	}
	if err := c.InvalidateCache(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *BunCatalog) Get(ctx context.Context, id uuid.UUID) (*Image, error) {
	img, err := c.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	return img, nil
}

func (c *BunCatalog) Update(ctx context.Context, img *Image) (*Image, error) {
	updated, err := c.repo.Update(ctx, img,
		repository.UpdateByID(img.ID.String()),
		repository.UpdateColumns("path", "url", "content_type", "size", "updated_at"),
	)
	if err != nil {
		return nil, mapRepositoryError(err, img.ID.String())
	}
	if err := c.InvalidateCache(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *BunCatalog) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := c.Get(ctx, id); err != nil {
		return err
	}
	if err := c.repo.Delete(ctx, &Image{ID: id}); err != nil {
		return mapRepositoryError(err, id.String())
	}
	return c.InvalidateCache(ctx)
}

// InvalidateCache drops cached catalog reads. It is a no-op without a cache.
func (c *BunCatalog) InvalidateCache(ctx context.Context) error {
	if c.cacheService == nil || c.cachePrefix == "" {
		return nil
	}
	return c.cacheService.DeleteByPrefix(ctx, c.cachePrefix)
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Key: key}
	}
	return fmt.Errorf("image catalog: %w", err)
}
