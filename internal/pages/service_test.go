package pages_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/blocks"
	"github.com/goliatone/go-pageblocks/internal/markdown"
	"github.com/goliatone/go-pageblocks/internal/media"
	"github.com/goliatone/go-pageblocks/internal/pages"
	"github.com/goliatone/go-pageblocks/internal/render"
)

type harness struct {
	svc     *pages.Service
	catalog *media.MemoryCatalog
}

func newHarness(t *testing.T, repo pages.PageRepository, store blocks.Store) *harness {
	t.Helper()
	catalog := media.NewMemoryCatalog()
	images := media.NewService(catalog, media.NewMemoryStore("/media/"))
	registry, err := blocks.NewRegistry(nil, blocks.DefaultTypes(images, markdown.NewRenderer(markdown.Options{}))...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	renderer, err := render.New()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	proc := blocks.NewProcessor(registry, store, blocks.WithRenderer(renderer))
	fixed := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	svc := pages.NewService(repo, proc,
		pages.WithLanguages("en", "en", "es"),
		pages.WithClock(func() time.Time { return fixed }),
	)
	return &harness{svc: svc, catalog: catalog}
}

func newMemoryHarness(t *testing.T) *harness {
	return newHarness(t, pages.NewMemoryPageRepository(), blocks.NewMemoryStore())
}

func htmlTree(values ...string) []blocks.Submission {
	out := make([]blocks.Submission, len(values))
	for i, v := range values {
		out[i] = blocks.Submission{Type: blocks.TypeHTML, Data: map[string]any{"html": v}}
	}
	return out
}

func TestSaveDerivesUniqueSlugs(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()

	first, err := h.svc.Save(ctx, pages.SavePageRequest{Title: map[string]string{"en": "Hello World"}})
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	if first.Slug != "hello-world" {
		t.Fatalf("expected hello-world, got %q", first.Slug)
	}

	second, err := h.svc.Save(ctx, pages.SavePageRequest{Title: map[string]string{"en": "Hello World"}})
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	if second.Slug != "hello-world-1" {
		t.Fatalf("expected hello-world-1, got %q", second.Slug)
	}

	again, err := h.svc.Save(ctx, pages.SavePageRequest{ID: &first.ID, Title: map[string]string{"en": "Hello World"}})
	if err != nil {
		t.Fatalf("resave first: %v", err)
	}
	if again.Slug != "hello-world" || again.ID != first.ID {
		t.Fatalf("a page must not conflict with itself, got %q", again.Slug)
	}
}

func TestSaveSlugFromRequestLocaleAndUntitled(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()

	page, err := h.svc.Save(ctx, pages.SavePageRequest{
		Locale: "es",
		Title:  map[string]string{"en": "About", "es": "Sobre nosotros"},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if page.Slug != "sobre-nosotros" {
		t.Fatalf("expected slug from es title, got %q", page.Slug)
	}

	untitled, err := h.svc.Save(ctx, pages.SavePageRequest{})
	if err != nil {
		t.Fatalf("save untitled: %v", err)
	}
	if untitled.Slug != "untitled" {
		t.Fatalf("expected untitled slug, got %q", untitled.Slug)
	}
}

func TestSaveExplicitSlugConflict(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()

	if _, err := h.svc.Save(ctx, pages.SavePageRequest{Slug: "about"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := h.svc.Save(ctx, pages.SavePageRequest{Slug: "about"})
	if !errors.Is(err, pages.ErrSlugConflict) {
		t.Fatalf("expected slug conflict, got %v", err)
	}

	_, err = h.svc.Save(ctx, pages.SavePageRequest{Slug: "Not A Slug!"})
	var verrs validation.Errors
	if !errors.As(err, &verrs) || verrs["slug"] == nil {
		t.Fatalf("expected slug validation error, got %v", err)
	}
}

func TestSaveValidatesEveryLanguageBeforeWriting(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()

	page, err := h.svc.Save(ctx, pages.SavePageRequest{
		Slug:   "home",
		Blocks: map[string][]blocks.Submission{"en": htmlTree("hi"), "es": htmlTree("hola")},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err = h.svc.Save(ctx, pages.SavePageRequest{
		ID:     &page.ID,
		Slug:   "home",
		Blocks: map[string][]blocks.Submission{"en": htmlTree("changed"), "es": htmlTree("")},
	})
	var fieldErr *blocks.FieldValidationError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected field validation error, got %v", err)
	}
	if fieldErr.Language != "es" || fieldErr.FieldID != "html" {
		t.Fatalf("unexpected error %+v", fieldErr)
	}

	reps, err := h.svc.Blocks(ctx, page.ID, "en")
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	if len(reps) != 1 || reps[0].Data["html"] != "hi" {
		t.Fatalf("expected en untouched, got %+v", reps)
	}
}

func TestSaveClearsMissingLanguages(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()

	page, err := h.svc.Save(ctx, pages.SavePageRequest{
		Slug:   "home",
		Blocks: map[string][]blocks.Submission{"en": htmlTree("hi"), "es": htmlTree("hola"), "de": htmlTree("hallo")},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	byLang, err := h.svc.BlocksByLanguage(ctx, page.ID)
	if err != nil {
		t.Fatalf("blocks by language: %v", err)
	}
	if len(byLang) != 2 || len(byLang["en"]) != 1 || len(byLang["es"]) != 1 {
		t.Fatalf("expected configured languages only, got %v", byLang)
	}
	if de, _ := h.svc.Blocks(ctx, page.ID, "de"); len(de) != 1 {
		t.Fatalf("expected extra language tree saved")
	}

	if _, err := h.svc.Save(ctx, pages.SavePageRequest{
		ID:     &page.ID,
		Slug:   "home",
		Blocks: map[string][]blocks.Submission{"en": htmlTree("hi")},
	}); err != nil {
		t.Fatalf("resave: %v", err)
	}
	if es, _ := h.svc.Blocks(ctx, page.ID, "es"); len(es) != 0 {
		t.Fatalf("expected es cleared, got %d", len(es))
	}
	if de, _ := h.svc.Blocks(ctx, page.ID, "de"); len(de) != 1 {
		t.Fatalf("unsubmitted extra languages are left alone")
	}
}

func TestRenderFallsBackToDefaultLocale(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()

	tree := htmlTree("<p>hi</p>")
	tree[0].I18NData = map[string]map[string]any{"es": {"html": "<p>hola</p>"}, "fr": {"html": "<p>salut</p>"}}
	page, err := h.svc.Save(ctx, pages.SavePageRequest{
		Title:  map[string]string{"en": "Home", "es": "Inicio"},
		Blocks: map[string][]blocks.Submission{"en": tree, "es": htmlTree("<p>es forest</p>")},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	en, err := h.svc.Render(ctx, page.ID, "en")
	if err != nil {
		t.Fatalf("render en: %v", err)
	}
	if en.Markup != "<p>hi</p>" || en.Title != "Home" || en.Language != "en" {
		t.Fatalf("unexpected en render %+v", en)
	}

	es, err := h.svc.Render(ctx, page.ID, "es")
	if err != nil {
		t.Fatalf("render es: %v", err)
	}
	if es.Markup != "<p>es forest</p>" || es.Title != "Inicio" {
		t.Fatalf("unexpected es render %+v", es)
	}

	fr, err := h.svc.RenderBySlug(ctx, page.Slug, "fr")
	if err != nil {
		t.Fatalf("render fr: %v", err)
	}
	if fr.Language != "en" || fr.Markup != "<p>salut</p>" {
		t.Fatalf("expected default forest with fr overrides, got %+v", fr)
	}
	if fr.Title != "Home" {
		t.Fatalf("expected default title fallback, got %q", fr.Title)
	}
}

const inlinePNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestDeleteReleasesBlockAssets(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()

	blob := inlinePNG
	page, err := h.svc.Save(ctx, pages.SavePageRequest{
		Slug: "gallery",
		Blocks: map[string][]blocks.Submission{
			"en": {{Type: blocks.TypeImage, Data: map[string]any{"image": blob}}},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if h.catalog.Len() != 1 {
		t.Fatalf("expected one image, got %d", h.catalog.Len())
	}

	if err := h.svc.Delete(ctx, page.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if h.catalog.Len() != 0 {
		t.Fatalf("expected image released")
	}
	if _, err := h.svc.Get(ctx, page.ID); !errors.Is(err, pages.ErrNotFound) {
		t.Fatalf("expected page gone, got %v", err)
	}
	if err := h.svc.Delete(ctx, page.ID); !errors.Is(err, pages.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestSaveWithUnknownIDCreatesPage(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()
	id := uuid.New()

	page, err := h.svc.Save(ctx, pages.SavePageRequest{ID: &id, Slug: "fixed"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if page.ID != id {
		t.Fatalf("expected requested id, got %s", page.ID)
	}
	got, err := h.svc.GetBySlug(ctx, "fixed")
	if err != nil || got.ID != id {
		t.Fatalf("expected lookup by slug, got %v %v", got, err)
	}
}

func TestTitleFallback(t *testing.T) {
	h := newMemoryHarness(t)
	page := &pages.Page{Title: map[string]string{"en": "Home", "es": " "}}
	if got := h.svc.Title(page, "es"); got != "Home" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := h.svc.Title(nil, "es"); got != "" {
		t.Fatalf("expected empty title for nil page")
	}
	if !strings.EqualFold(h.svc.DefaultLocale(), "en") {
		t.Fatalf("unexpected default locale")
	}
}

func unknownBlock() blocks.Submission {
	id := uuid.New()
	return blocks.Submission{ID: &id, Type: blocks.TypeHTML, Data: map[string]any{"html": "x"}}
}

func TestSaveFailureUndoesUploadsAndNewPage(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()

	_, err := h.svc.Save(ctx, pages.SavePageRequest{
		Slug: "gallery",
		Blocks: map[string][]blocks.Submission{
			"en": {{Type: blocks.TypeImage, Data: map[string]any{"image": inlinePNG}}},
			"es": {unknownBlock()},
		},
	})
	if !errors.Is(err, blocks.ErrNotFound) {
		t.Fatalf("expected block not found, got %v", err)
	}
	if h.catalog.Len() != 0 {
		t.Fatalf("expected upload undone, catalog has %d images", h.catalog.Len())
	}
	if _, err := h.svc.GetBySlug(ctx, "gallery"); !errors.Is(err, pages.ErrNotFound) {
		t.Fatalf("expected page created by the failed save to be removed, got %v", err)
	}
}

func TestSaveFailureKeepsClearedImage(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()

	page, err := h.svc.Save(ctx, pages.SavePageRequest{
		Slug: "gallery",
		Blocks: map[string][]blocks.Submission{
			"en": {{Type: blocks.TypeImage, Data: map[string]any{"image": inlinePNG}}},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	before, err := h.svc.Blocks(ctx, page.ID, "en")
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	url, _ := before[0].Data["image"].(string)
	if url == "" {
		t.Fatalf("expected image url, got %v", before[0].Data)
	}

	blockID := before[0].ID
	_, err = h.svc.Save(ctx, pages.SavePageRequest{
		ID:   &page.ID,
		Slug: "gallery",
		Blocks: map[string][]blocks.Submission{
			"en": {{ID: &blockID, Type: blocks.TypeImage, Data: map[string]any{"image": ""}}},
			"es": {unknownBlock()},
		},
	})
	if err == nil {
		t.Fatalf("expected save to fail")
	}
	if h.catalog.Len() != 1 {
		t.Fatalf("expected image kept, catalog has %d images", h.catalog.Len())
	}
	after, err := h.svc.Blocks(ctx, page.ID, "en")
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	if after[0].Data["image"] != url {
		t.Fatalf("expected %q still resolved, got %v", url, after[0].Data)
	}
}

func TestSaveFailureRestoresPageRow(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()

	page, err := h.svc.Save(ctx, pages.SavePageRequest{Title: map[string]string{"en": "Hello"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err = h.svc.Save(ctx, pages.SavePageRequest{
		ID:     &page.ID,
		Title:  map[string]string{"en": "Changed"},
		Blocks: map[string][]blocks.Submission{"es": {unknownBlock()}},
	})
	if err == nil {
		t.Fatalf("expected save to fail")
	}

	got, err := h.svc.Get(ctx, page.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Slug != "hello" || got.Title["en"] != "Hello" {
		t.Fatalf("expected previous row restored, got %+v", got)
	}
	if _, err := h.svc.GetBySlug(ctx, "changed"); !errors.Is(err, pages.ErrNotFound) {
		t.Fatalf("expected derived slug released, got %v", err)
	}
}
