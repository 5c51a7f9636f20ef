package pagescmd

import (
	"context"

	command "github.com/goliatone/go-command"
	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/blocks"
	"github.com/goliatone/go-pageblocks/internal/commands"
	"github.com/goliatone/go-pageblocks/internal/logging"
	"github.com/goliatone/go-pageblocks/internal/pages"
	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

const savePageMessageType = "pageblocks.pages.save"

// PageService is the part of pages.Service the page commands drive.
type PageService interface {
	Save(ctx context.Context, req pages.SavePageRequest) (*pages.Page, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SavePageCommand saves a page with the block tree of every language.
type SavePageCommand struct {
	ID     *uuid.UUID                     `json:"id,omitempty"`
	Slug   string                         `json:"slug,omitempty"`
	Title  map[string]string              `json:"title,omitempty"`
	Locale string                         `json:"locale,omitempty"`
	Blocks map[string][]blocks.Submission `json:"blocks,omitempty"`
}

// Type implements command.Message.
func (SavePageCommand) Type() string { return savePageMessageType }

func (m SavePageCommand) Validate() error {
	return m.Request().Validate()
}

// Request converts the command into a service request.
func (m SavePageCommand) Request() pages.SavePageRequest {
	return pages.SavePageRequest{
		ID:     m.ID,
		Slug:   m.Slug,
		Title:  m.Title,
		Locale: m.Locale,
		Blocks: m.Blocks,
	}
}

var _ command.Commander[SavePageCommand] = (*SavePageHandler)(nil)

// SavePageHandler saves pages through the shared command handler.
type SavePageHandler struct {
	inner *commands.Handler[SavePageCommand]
}

func NewSavePageHandler(service PageService, logger interfaces.Logger, opts ...commands.HandlerOption[SavePageCommand]) *SavePageHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg SavePageCommand) error {
		page, err := service.Save(ctx, msg.Request())
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"page_id": page.ID.String(),
			"slug":    page.Slug,
		}).Info("pages.command.save.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[SavePageCommand]{
		commands.WithLogger[SavePageCommand](baseLogger),
		commands.WithOperation[SavePageCommand]("pages.save"),
		commands.WithMessageFields(func(msg SavePageCommand) map[string]any {
			fields := map[string]any{"languages": len(msg.Blocks)}
			if msg.ID != nil {
				fields["page_id"] = msg.ID.String()
			}
			if msg.Slug != "" {
				fields["slug"] = msg.Slug
			}
			return fields
		}),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &SavePageHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[SavePageCommand].
func (h *SavePageHandler) Execute(ctx context.Context, msg SavePageCommand) error {
	return h.inner.Execute(ctx, msg)
}
