package pages

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/logging"
)

// Render renders the page for locale. When the locale has no blocks the
// default locale forest is rendered instead, still applying locale overrides.
func (s *Service) Render(ctx context.Context, pageID uuid.UUID, locale string) (*Rendered, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = s.defaultLocale
	}
	page, err := s.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}

	language := locale
	roots, err := s.blocks.LoadForest(ctx, pageID, language)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 && language != s.defaultLocale {
		language = s.defaultLocale
		if roots, err = s.blocks.LoadForest(ctx, pageID, language); err != nil {
			return nil, err
		}
		logging.WithPage(s.logger, pageID.String(), locale).Debug("pages.render.fallback", "fallback", language)
	}

	markup, err := s.blocks.Render(ctx, roots, locale)
	if err != nil {
		return nil, err
	}
	scripts, err := s.blocks.ScriptTags(ctx, roots)
	if err != nil {
		return nil, err
	}
	stylesheets, err := s.blocks.StylesheetTags(ctx, roots)
	if err != nil {
		return nil, err
	}
	return &Rendered{
		Page:        page,
		Locale:      locale,
		Language:    language,
		Title:       s.Title(page, locale),
		Markup:      markup,
		Scripts:     scripts,
		Stylesheets: stylesheets,
	}, nil
}

// RenderBySlug looks the page up by slug and renders it.
func (s *Service) RenderBySlug(ctx context.Context, slug, locale string) (*Rendered, error) {
	page, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.Render(ctx, page.ID, locale)
}

// Title returns the page title for locale, falling back to the default
// locale.
func (s *Service) Title(page *Page, locale string) string {
	if page == nil {
		return ""
	}
	if title := strings.TrimSpace(page.Title[locale]); title != "" {
		return title
	}
	return page.Title[s.defaultLocale]
}
