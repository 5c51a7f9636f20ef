// Package pageblocks stores pages as ordered, nestable trees of typed content
// blocks per language and renders them to HTML.
package pageblocks

import (
	"context"

	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/blocks"
	markdowncmd "github.com/goliatone/go-pageblocks/internal/commands/markdown"
	pagescmd "github.com/goliatone/go-pageblocks/internal/commands/pages"
	"github.com/goliatone/go-pageblocks/internal/di"
	"github.com/goliatone/go-pageblocks/internal/logging"
	"github.com/goliatone/go-pageblocks/internal/pages"
)

type (
	Page            = pages.Page
	Rendered        = pages.Rendered
	SavePageRequest = pages.SavePageRequest
	Submission      = blocks.Submission
	Representation  = blocks.Representation
	TypeSchema      = blocks.TypeSchema

	SavePageCommand       = pagescmd.SavePageCommand
	DeletePageCommand     = pagescmd.DeletePageCommand
	ImportMarkdownCommand = markdowncmd.ImportMarkdownCommand

	FieldValidationError = blocks.FieldValidationError
	UnknownTypeError     = blocks.UnknownTypeError
)

var (
	ErrPageNotFound    = pages.ErrNotFound
	ErrSlugConflict    = pages.ErrSlugConflict
	ErrFieldValidation = blocks.ErrFieldValidation
	ErrUnknownType     = blocks.ErrUnknownType
)

// Module is the top level pageblocks runtime.
type Module struct {
	container *di.Container
}

// New wires a module from cfg. Close releases the database it may open.
func New(ctx context.Context, cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container { return m.container }

func (m *Module) Close() error { return m.container.Close() }

func (m *Module) Pages() *pages.Service { return m.container.PageService() }

// Schema exports the available block types for editors.
func (m *Module) Schema() map[string]TypeSchema {
	logger := logging.ModuleLogger(m.container.LoggerProvider(), logging.BlocksModule)
	return m.container.Registry().Schema(logger)
}

func (m *Module) SavePage(ctx context.Context, cmd SavePageCommand) error {
	return m.container.SavePageHandler().Execute(ctx, cmd)
}

func (m *Module) DeletePage(ctx context.Context, id uuid.UUID) error {
	return m.container.DeletePageHandler().Execute(ctx, DeletePageCommand{ID: id})
}

func (m *Module) ImportMarkdown(ctx context.Context, cmd ImportMarkdownCommand) error {
	return m.container.ImportMarkdownHandler().Execute(ctx, cmd)
}

func (m *Module) Render(ctx context.Context, pageID uuid.UUID, locale string) (*Rendered, error) {
	return m.container.PageService().Render(ctx, pageID, locale)
}

func (m *Module) RenderBySlug(ctx context.Context, slug, locale string) (*Rendered, error) {
	return m.container.PageService().RenderBySlug(ctx, slug, locale)
}

// Blocks returns the stored tree of one language for editing.
func (m *Module) Blocks(ctx context.Context, pageID uuid.UUID, language string) ([]Representation, error) {
	return m.container.PageService().Blocks(ctx, pageID, language)
}
