package pages

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goslug "github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/blocks"
	"github.com/goliatone/go-pageblocks/internal/logging"
	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

const untitled = "Untitled"

// SavePageRequest carries a page and its block trees keyed by language.
// A nil ID creates a page; an ID that does not exist yet creates the page
// with that id.
type SavePageRequest struct {
	ID     *uuid.UUID                     `json:"id,omitempty"`
	Slug   string                         `json:"slug,omitempty"`
	Title  map[string]string              `json:"title,omitempty"`
	Locale string                         `json:"locale,omitempty"`
	Blocks map[string][]blocks.Submission `json:"blocks,omitempty"`
}

func (r SavePageRequest) Validate() error {
	errs := validation.Errors{}
	if slug := strings.TrimSpace(r.Slug); slug != "" && !goslug.IsValid(slug) {
		errs["slug"] = validation.NewError("pageblocks.pages.save.slug_invalid", "slug must be a valid url segment")
	}
	for lang := range r.Title {
		if strings.TrimSpace(lang) == "" {
			errs["title"] = validation.NewError("pageblocks.pages.save.title_language_invalid", "title languages must not be empty")
		}
	}
	for lang := range r.Blocks {
		if strings.TrimSpace(lang) == "" {
			errs["blocks"] = validation.NewError("pageblocks.pages.save.blocks_language_invalid", "block tree languages must not be empty")
		}
	}
	return errs.Filter()
}

// Rendered is a page rendered for one locale.
type Rendered struct {
	Page        *Page  `json:"page"`
	Locale      string `json:"locale"`
	Language    string `json:"language"`
	Title       string `json:"title"`
	Markup      string `json:"markup"`
	Scripts     string `json:"scripts"`
	Stylesheets string `json:"stylesheets"`
}

// Service coordinates page rows with their block forests.
type Service struct {
	pages         PageRepository
	blocks        *blocks.Processor
	defaultLocale string
	languages     []string
	logger        interfaces.Logger
	now           func() time.Time
	newID         func() uuid.UUID
}

type ServiceOption func(*Service)

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithIDGenerator(fn func() uuid.UUID) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLanguages sets the default locale and the configured languages. Saves
// always cover every configured language.
func WithLanguages(defaultLocale string, languages ...string) ServiceOption {
	return func(s *Service) {
		if defaultLocale = strings.TrimSpace(defaultLocale); defaultLocale != "" {
			s.defaultLocale = defaultLocale
		}
		ordered := []string{s.defaultLocale}
		for _, lang := range languages {
			if lang = strings.TrimSpace(lang); lang != "" && !slices.Contains(ordered, lang) {
				ordered = append(ordered, lang)
			}
		}
		s.languages = ordered
	}
}

func NewService(pages PageRepository, processor *blocks.Processor, opts ...ServiceOption) *Service {
	s := &Service{
		pages:         pages,
		blocks:        processor,
		defaultLocale: "en",
		languages:     []string{"en"},
		logger:        logging.NoOp(),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) DefaultLocale() string { return s.defaultLocale }
func (s *Service) Languages() []string   { return slices.Clone(s.languages) }

// Save validates every language tree, then writes the page row and all trees.
// Trees are written in one block store transaction. When it fails the page
// row is put back as it was and image uploads of the save are undone; when it
// commits, replaced images and assets of removed blocks are released.
func (s *Service) Save(ctx context.Context, req SavePageRequest) (*Page, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	languages := s.saveOrder(req.Blocks)
	cleaned := make(map[string][]blocks.Submission, len(languages))
	for _, lang := range languages {
		subs, err := s.blocks.ValidateList(ctx, req.Blocks[lang], nil)
		if err != nil {
			var fieldErr *blocks.FieldValidationError
			if errors.As(err, &fieldErr) && fieldErr.Language == "" {
				fieldErr.Language = lang
			}
			return nil, err
		}
		cleaned[lang] = subs
	}

	page, previous, err := s.upsertPage(ctx, req)
	if err != nil {
		return nil, err
	}
	logger := logging.WithFields(s.logger.WithContext(ctx), map[string]any{"page_id": page.ID.String(), "slug": page.Slug})

	journal := blocks.NewJournal()
	var removed []*blocks.Record
	err = s.blocks.Store().RunInTx(ctx, func(ctx context.Context, tx blocks.Store) error {
		proc := s.blocks.WithStore(tx).WithJournal(journal)
		for _, lang := range languages {
			result, err := proc.SaveList(ctx, blocks.SaveTarget{PageID: page.ID, Language: lang}, cleaned[lang])
			if err != nil {
				return fmt.Errorf("pages: save %s blocks: %w", lang, err)
			}
			removed = append(removed, result.Removed...)
		}
		return nil
	})
	if err != nil {
		logger.Error("pages.save.failed", "error", err)
		if rbErr := journal.Rollback(ctx); rbErr != nil {
			logger.Warn("pages.save.rollback_failed", "error", rbErr)
		}
		s.restorePage(ctx, logger, page.ID, previous)
		return nil, err
	}

	if err := journal.Commit(ctx); err != nil {
		logger.Warn("pages.save.commit_cleanup_failed", "error", err)
	}
	s.release(ctx, logger, removed)
	logger.Info("pages.save.completed", "languages", len(languages), "removed", len(removed))
	return page, nil
}

// restorePage undoes upsertPage after a failed block save: a page created by
// the save is deleted, an updated one gets its previous row back.
func (s *Service) restorePage(ctx context.Context, logger interfaces.Logger, id uuid.UUID, previous *Page) {
	var err error
	if previous == nil {
		err = s.pages.Delete(ctx, id)
	} else {
		_, err = s.pages.Update(ctx, previous)
	}
	if err != nil {
		logger.Warn("pages.save.restore_failed", "error", err)
	}
}

// saveOrder lists configured languages first, then any other submitted
// language sorted.
func (s *Service) saveOrder(trees map[string][]blocks.Submission) []string {
	order := slices.Clone(s.languages)
	var extra []string
	for lang := range trees {
		if !slices.Contains(order, lang) {
			extra = append(extra, lang)
		}
	}
	slices.Sort(extra)
	return append(order, extra...)
}

// upsertPage creates or updates the page row. For updates it also returns
// the row as it was before.
func (s *Service) upsertPage(ctx context.Context, req SavePageRequest) (*Page, *Page, error) {
	var existing *Page
	id := s.newID()
	if req.ID != nil {
		id = *req.ID
		page, err := s.pages.GetByID(ctx, id)
		switch {
		case err == nil:
			existing = page
		case !errors.Is(err, ErrNotFound):
			return nil, nil, err
		}
	}

	slug, err := s.resolveSlug(ctx, req, id)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	if existing == nil {
		created, err := s.pages.Create(ctx, &Page{
			ID:        id,
			Slug:      slug,
			Title:     maps.Clone(req.Title),
			CreatedAt: now,
			UpdatedAt: now,
		})
		return created, nil, err
	}
	previous := clonePage(existing)
	existing.Slug = slug
	existing.Title = maps.Clone(req.Title)
	existing.UpdatedAt = now
	updated, err := s.pages.Update(ctx, existing)
	if err != nil {
		return nil, nil, err
	}
	return updated, previous, nil
}

// resolveSlug keeps an explicit slug or derives one from the title in the
// request locale, appending -N until no other page uses it.
func (s *Service) resolveSlug(ctx context.Context, req SavePageRequest, pageID uuid.UUID) (string, error) {
	if explicit := strings.TrimSpace(req.Slug); explicit != "" {
		taken, err := s.slugTaken(ctx, explicit, pageID)
		if err != nil {
			return "", err
		}
		if taken {
			return "", &SlugConflictError{Slug: explicit}
		}
		return explicit, nil
	}

	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = s.defaultLocale
	}
	title := strings.TrimSpace(req.Title[locale])
	if title == "" {
		title = untitled
	}
	base, err := goslug.Normalize(title)
	if err != nil || base == "" {
		base = strings.ToLower(untitled)
	}

	candidate := base
	for n := 1; ; n++ {
		taken, err := s.slugTaken(ctx, candidate, pageID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *Service) slugTaken(ctx context.Context, slug string, pageID uuid.UUID) (bool, error) {
	page, err := s.pages.GetBySlug(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return page.ID != pageID, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Page, error) {
	if s.pages == nil {
		return nil, ErrRepoRequired
	}
	return s.pages.GetByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Page, error) {
	if s.pages == nil {
		return nil, ErrRepoRequired
	}
	return s.pages.GetBySlug(ctx, slug)
}

// Delete removes the page and every block of every language, then releases
// block assets.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.pages.GetByID(ctx, id); err != nil {
		return err
	}
	var removed []*blocks.Record
	err := s.blocks.Store().RunInTx(ctx, func(ctx context.Context, tx blocks.Store) error {
		var err error
		removed, err = tx.DeletePage(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if err := s.pages.Delete(ctx, id); err != nil {
		return err
	}
	logger := logging.WithFields(s.logger.WithContext(ctx), map[string]any{"page_id": id.String()})
	s.release(ctx, logger, removed)
	logger.Info("pages.delete.completed", "blocks", len(removed))
	return nil
}

func (s *Service) release(ctx context.Context, logger interfaces.Logger, removed []*blocks.Record) {
	if len(removed) == 0 {
		return
	}
	if err := s.blocks.Release(ctx, removed); err != nil {
		logger.Warn("pages.release.failed", "error", err)
	}
}

// Blocks represents the forest of one language.
func (s *Service) Blocks(ctx context.Context, pageID uuid.UUID, language string) ([]blocks.Representation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	roots, err := s.blocks.LoadForest(ctx, pageID, language)
	if err != nil {
		return nil, err
	}
	return s.blocks.ListToRepresentation(ctx, roots)
}

// BlocksByLanguage represents the forest of every configured language.
func (s *Service) BlocksByLanguage(ctx context.Context, pageID uuid.UUID) (map[string][]blocks.Representation, error) {
	out := make(map[string][]blocks.Representation, len(s.languages))
	for _, lang := range s.languages {
		reps, err := s.Blocks(ctx, pageID, lang)
		if err != nil {
			return nil, err
		}
		out[lang] = reps
	}
	return out, nil
}

func (s *Service) ready() error {
	if s.pages == nil {
		return ErrRepoRequired
	}
	if s.blocks == nil || s.blocks.Store() == nil {
		return ErrBlocksMissing
	}
	return nil
}
