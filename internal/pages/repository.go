package pages

import (
	"context"
	"fmt"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PageRepository persists page rows. Blocks are stored separately.
type PageRepository interface {
	Create(ctx context.Context, page *Page) (*Page, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Page, error)
	GetBySlug(ctx context.Context, slug string) (*Page, error)
	Update(ctx context.Context, page *Page) (*Page, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemoryPageRepository is an in-memory page store for tests and the CLI.
type MemoryPageRepository struct {
	mu        sync.RWMutex
	pages     map[uuid.UUID]*Page
	slugIndex map[string]uuid.UUID
}

var _ PageRepository = (*MemoryPageRepository)(nil)

func NewMemoryPageRepository() *MemoryPageRepository {
	return &MemoryPageRepository{
		pages:     make(map[uuid.UUID]*Page),
		slugIndex: make(map[string]uuid.UUID),
	}
}

func (m *MemoryPageRepository) Create(_ context.Context, page *Page) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.slugIndex[page.Slug]; ok && owner != page.ID {
		return nil, &SlugConflictError{Slug: page.Slug}
	}
	stored := clonePage(page)
	m.pages[stored.ID] = stored
	m.slugIndex[stored.Slug] = stored.ID
	return clonePage(stored), nil
}

func (m *MemoryPageRepository) GetByID(_ context.Context, id uuid.UUID) (*Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	page, ok := m.pages[id]
	if !ok {
		return nil, &PageNotFoundError{Key: id.String()}
	}
	return clonePage(page), nil
}

func (m *MemoryPageRepository) GetBySlug(_ context.Context, slug string) (*Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.slugIndex[slug]
	if !ok {
		return nil, &PageNotFoundError{Key: slug}
	}
	return clonePage(m.pages[id]), nil
}

func (m *MemoryPageRepository) Update(_ context.Context, page *Page) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.pages[page.ID]
	if !ok {
		return nil, &PageNotFoundError{Key: page.ID.String()}
	}
	if owner, ok := m.slugIndex[page.Slug]; ok && owner != page.ID {
		return nil, &SlugConflictError{Slug: page.Slug}
	}
	delete(m.slugIndex, existing.Slug)
	stored := clonePage(page)
	stored.CreatedAt = existing.CreatedAt
	m.pages[stored.ID] = stored
	m.slugIndex[stored.Slug] = stored.ID
	return clonePage(stored), nil
}

func (m *MemoryPageRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[id]
	if !ok {
		return &PageNotFoundError{Key: id.String()}
	}
	delete(m.slugIndex, page.Slug)
	delete(m.pages, id)
	return nil
}

// BunPageRepository stores pages through go-repository-bun, optionally
// behind a read cache.
type BunPageRepository struct {
	repo         repository.Repository[*Page]
	cacheService cache.CacheService
	cachePrefix  string
}

const pageNamespace = "page"

var _ PageRepository = (*BunPageRepository)(nil)

func NewBunPageRepository(db *bun.DB) *BunPageRepository {
	return NewBunPageRepositoryWithCache(db, nil, nil)
}

// NewBunPageRepositoryWithCache wraps the repository with go-repository-cache
// when both cacheService and keySerializer are set.
func NewBunPageRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunPageRepository {
	r := &BunPageRepository{repo: NewPageRepository(db)}
	if cacheService != nil && keySerializer != nil {
		r.repo = repositorycache.New(r.repo, cacheService, keySerializer)
		r.cacheService = cacheService
		r.cachePrefix = pageNamespace + cache.KeySeparator
	}
	return r
}

func NewPageRepository(db *bun.DB) repository.Repository[*Page] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Page]{
		NewRecord: func() *Page { return &Page{} },
		GetID: func(p *Page) uuid.UUID {
			return p.ID
		},
		SetID: func(p *Page, id uuid.UUID) {
			p.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
		GetIdentifierValue: func(p *Page) string {
			return p.Slug
		},
	})
}

func (r *BunPageRepository) Create(ctx context.Context, page *Page) (*Page, error) {
	created, err := r.repo.Create(ctx, page)
	if err != nil {
		return nil, mapWriteError(err, page.Slug)
	}
	if err := r.InvalidateCache(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *BunPageRepository) GetByID(ctx context.Context, id uuid.UUID) (*Page, error) {
	page, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	return page, nil
}

func (r *BunPageRepository) GetBySlug(ctx context.Context, slug string) (*Page, error) {
	page, err := r.repo.GetByIdentifier(ctx, slug)
	if err != nil {
		return nil, mapRepositoryError(err, slug)
	}
	return page, nil
}

func (r *BunPageRepository) Update(ctx context.Context, page *Page) (*Page, error) {
	updated, err := r.repo.Update(ctx, page,
		repository.UpdateByID(page.ID.String()),
		repository.UpdateColumns("slug", "title", "updated_at"),
	)
	if err != nil {
		return nil, mapWriteError(err, page.Slug)
	}
	if err := r.InvalidateCache(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *BunPageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	page, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.repo.Delete(ctx, page); err != nil {
		return mapRepositoryError(err, id.String())
	}
	return r.InvalidateCache(ctx)
}

// InvalidateCache drops cached page reads. It is a no-op without a cache.
func (r *BunPageRepository) InvalidateCache(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &PageNotFoundError{Key: key}
	}
	return fmt.Errorf("page repository error: %w", err)
}

func mapWriteError(err error, slug string) error {
	if isUniqueViolation(err) {
		return &SlugConflictError{Slug: slug}
	}
	return mapRepositoryError(err, slug)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
