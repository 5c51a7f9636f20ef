package markdowncmd

import (
	"context"
	"errors"
	"maps"
	"path/filepath"
	"strings"

	command "github.com/goliatone/go-command"
	goslug "github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/blocks"
	"github.com/goliatone/go-pageblocks/internal/commands"
	"github.com/goliatone/go-pageblocks/internal/identity"
	"github.com/goliatone/go-pageblocks/internal/logging"
	"github.com/goliatone/go-pageblocks/internal/markdown"
	"github.com/goliatone/go-pageblocks/internal/pages"
	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

const importOperation = "markdown.import"

// ErrSlugUnresolved is returned when neither the frontmatter, the file name
// nor the title yield a usable slug.
var ErrSlugUnresolved = errors.New("markdown command: cannot resolve slug")

// PageService is the part of pages.Service an import needs.
type PageService interface {
	DefaultLocale() string
	GetBySlug(ctx context.Context, slug string) (*pages.Page, error)
	Blocks(ctx context.Context, pageID uuid.UUID, language string) ([]blocks.Representation, error)
	BlocksByLanguage(ctx context.Context, pageID uuid.UUID) (map[string][]blocks.Representation, error)
	Save(ctx context.Context, req pages.SavePageRequest) (*pages.Page, error)
}

var _ command.Commander[ImportMarkdownCommand] = (*ImportMarkdownHandler)(nil)

// ImportMarkdownHandler imports markdown files via the shared command handler.
type ImportMarkdownHandler struct {
	inner *commands.Handler[ImportMarkdownCommand]
}

func NewImportMarkdownHandler(service PageService, logger interfaces.Logger, opts ...commands.HandlerOption[ImportMarkdownCommand]) *ImportMarkdownHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg ImportMarkdownCommand) error {
		doc, err := markdown.LoadDocument(msg.Path)
		if err != nil {
			return err
		}
		page, err := importDocument(ctx, service, doc, msg.Locale)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"page_id": page.ID.String(),
			"slug":    page.Slug,
		}).Info("markdown.command.import.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[ImportMarkdownCommand]{
		commands.WithLogger[ImportMarkdownCommand](baseLogger),
		commands.WithOperation[ImportMarkdownCommand](importOperation),
		commands.WithMessageFields(func(msg ImportMarkdownCommand) map[string]any {
			fields := map[string]any{"path": msg.Path}
			if msg.Locale != "" {
				fields["locale"] = msg.Locale
			}
			return fields
		}),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ImportMarkdownHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ImportMarkdownCommand].
func (h *ImportMarkdownHandler) Execute(ctx context.Context, msg ImportMarkdownCommand) error {
	return h.inner.Execute(ctx, msg)
}

// DocumentSlug picks the page slug for doc: the frontmatter slug, then the
// file name, then the title.
func DocumentSlug(doc *markdown.Document) (string, error) {
	if doc == nil {
		return "", ErrSlugUnresolved
	}
	candidates := []string{doc.Slug}
	if doc.Path != "" {
		base := filepath.Base(doc.Path)
		candidates = append(candidates, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	candidates = append(candidates, doc.Title)
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		slug, err := goslug.Normalize(candidate)
		if err == nil && slug != "" {
			return slug, nil
		}
	}
	return "", ErrSlugUnresolved
}

// importDocument writes doc as the only root of the locale tree. Other
// language trees are resubmitted unchanged so the save leaves them intact.
func importDocument(ctx context.Context, service PageService, doc *markdown.Document, locale string) (*pages.Page, error) {
	slug, err := DocumentSlug(doc)
	if err != nil {
		return nil, err
	}
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = doc.Locale
	}
	if locale == "" {
		locale = service.DefaultLocale()
	}

	pageID := identity.PageUUID(slug)
	title := map[string]string{}
	existing, err := service.GetBySlug(ctx, slug)
	switch {
	case err == nil:
		pageID = existing.ID
		title = maps.Clone(existing.Title)
		if title == nil {
			title = map[string]string{}
		}
	case !errors.Is(err, pages.ErrNotFound):
		return nil, err
	}
	if doc.Title != "" {
		title[locale] = doc.Title
	}

	trees := map[string][]blocks.Submission{}
	if existing != nil {
		current, err := service.BlocksByLanguage(ctx, pageID)
		if err != nil {
			return nil, err
		}
		for lang, reps := range current {
			if lang == locale {
				continue
			}
			subs, err := blocks.DecodeSubmissions(reps)
			if err != nil {
				return nil, err
			}
			trees[lang] = subs
		}
	}

	block := blocks.Submission{
		Type: blocks.TypeMarkdown,
		Data: map[string]any{"markdown": doc.Body},
	}
	if existing != nil {
		roots, err := service.Blocks(ctx, pageID, locale)
		if err != nil {
			return nil, err
		}
		if id, ok := markdownRoot(roots); ok {
			block.ID = &id
		}
	}
	trees[locale] = []blocks.Submission{block}

	return service.Save(ctx, pages.SavePageRequest{
		ID:     &pageID,
		Slug:   slug,
		Title:  title,
		Locale: locale,
		Blocks: trees,
	})
}

func markdownRoot(roots []blocks.Representation) (uuid.UUID, bool) {
	for _, rep := range roots {
		if rep.Type == blocks.TypeMarkdown {
			return rep.ID, true
		}
	}
	return uuid.Nil, false
}
