package blocks_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-pageblocks/internal/blocks"
	"github.com/google/uuid"
)

func imageSub(value string) blocks.Submission {
	return blocks.Submission{Type: blocks.TypeImage, Data: map[string]any{"image": value, "alt": "logo"}}
}

func TestImageInlineUploadIsCataloged(t *testing.T) {
	f := newFixture(t, blocks.NewMemoryStore())
	pageID := uuid.New()

	result := f.save(t, pageID, "en", []blocks.Submission{imageSub(inlinePNG())})
	stored := result.Rows[0].Data
	if _, ok := stored["image"]; ok {
		t.Fatalf("inline payload must not be stored, got %v", stored)
	}
	if _, err := uuid.Parse(stored["image_id"].(string)); err != nil {
		t.Fatalf("expected image_id, got %v", stored["image_id"])
	}
	if f.catalog.Len() != 1 || f.assets.Len() != 1 {
		t.Fatalf("expected one cataloged image, got catalog=%d assets=%d", f.catalog.Len(), f.assets.Len())
	}

	reps := f.represent(t, pageID, "en")
	url, _ := reps[0].Data["image"].(string)
	if !strings.HasPrefix(url, "/media/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("expected catalog url, got %q", url)
	}
	name := strings.TrimSuffix(strings.TrimPrefix(url, "/media/"), ".png")
	if len(name) != 12 {
		t.Fatalf("expected opaque 12 char name, got %q", name)
	}
	if reps[0].Data["alt"] != "logo" {
		t.Fatalf("expected alt to round trip")
	}
}

func TestImageReplaceKeepsCatalogEntry(t *testing.T) {
	f := newFixture(t, blocks.NewMemoryStore())
	pageID := uuid.New()

	first := f.save(t, pageID, "en", []blocks.Submission{imageSub(inlinePNG())})
	blockID := first.Rows[0].ID
	imageID := first.Rows[0].Data["image_id"]
	firstURL := f.represent(t, pageID, "en")[0].Data["image"]

	second := f.save(t, pageID, "en", []blocks.Submission{withID(imageSub(inlinePNG()), blockID)})
	if second.Rows[0].Data["image_id"] != imageID {
		t.Fatalf("expected catalog entry %v to be re-pointed, got %v", imageID, second.Rows[0].Data["image_id"])
	}
	if f.catalog.Len() != 1 || f.assets.Len() != 1 {
		t.Fatalf("expected old blob to be deleted, catalog=%d assets=%d", f.catalog.Len(), f.assets.Len())
	}
	secondURL := f.represent(t, pageID, "en")[0].Data["image"]
	if secondURL == firstURL {
		t.Fatalf("expected a new file name after replacement")
	}

	third := f.save(t, pageID, "en", []blocks.Submission{withID(imageSub(secondURL.(string)), blockID)})
	if third.Rows[0].Data["image_id"] != imageID {
		t.Fatalf("submitting the current url must keep the catalog entry")
	}
}

func TestImageClearDeletesCatalogEntry(t *testing.T) {
	f := newFixture(t, blocks.NewMemoryStore())
	pageID := uuid.New()

	first := f.save(t, pageID, "en", []blocks.Submission{imageSub(inlinePNG())})
	f.save(t, pageID, "en", []blocks.Submission{withID(imageSub(""), first.Rows[0].ID)})

	if f.catalog.Len() != 0 || f.assets.Len() != 0 {
		t.Fatalf("expected image deleted, catalog=%d assets=%d", f.catalog.Len(), f.assets.Len())
	}
	reps := f.represent(t, pageID, "en")
	if _, ok := reps[0].Data["image"]; ok {
		t.Fatalf("expected no image after clearing, got %v", reps[0].Data)
	}
}

func TestImageExternalReference(t *testing.T) {
	f := newFixture(t, blocks.NewMemoryStore())
	pageID := uuid.New()

	first := f.save(t, pageID, "en", []blocks.Submission{imageSub(inlinePNG())})
	f.save(t, pageID, "en", []blocks.Submission{withID(imageSub("https://cdn.example.com/a.jpg"), first.Rows[0].ID)})

	if f.catalog.Len() != 0 {
		t.Fatalf("expected previous catalog image released")
	}
	reps := f.represent(t, pageID, "en")
	if reps[0].Data["image"] != "https://cdn.example.com/a.jpg" {
		t.Fatalf("expected reference kept, got %v", reps[0].Data["image"])
	}
}

func TestImageReleasedAfterOmission(t *testing.T) {
	f := newFixture(t, blocks.NewMemoryStore())
	pageID := uuid.New()

	f.save(t, pageID, "en", []blocks.Submission{container(child(blocks.TypeImage, map[string]any{"image": inlinePNG()}))})
	result := f.save(t, pageID, "en", nil)
	if len(result.Removed) != 2 {
		t.Fatalf("expected container and image removed, got %d", len(result.Removed))
	}
	if f.catalog.Len() != 1 {
		t.Fatalf("assets are released after commit, not during the save")
	}
	if err := f.proc.Release(context.Background(), result.Removed); err != nil {
		t.Fatalf("release: %v", err)
	}
	if f.catalog.Len() != 0 || f.assets.Len() != 0 {
		t.Fatalf("expected image released, catalog=%d assets=%d", f.catalog.Len(), f.assets.Len())
	}
}

func TestImageInvalidInlineData(t *testing.T) {
	f := newFixture(t, blocks.NewMemoryStore())

	_, err := f.proc.ValidateList(context.Background(), []blocks.Submission{
		html("ok"),
		imageSub("%%% not base64 %%%"),
	}, nil)
	var fieldErr *blocks.FieldValidationError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected field validation error, got %v", err)
	}
	if fieldErr.FieldID != "image" || fieldErr.Message != "Invalid image data" || blocks.FormatPath(fieldErr.Path) != "1" {
		t.Fatalf("unexpected error %+v", fieldErr)
	}
	if !errors.Is(err, blocks.ErrInvalidImageData) {
		t.Fatalf("expected ErrInvalidImageData in chain")
	}
}

func TestImageUploadUndoneWhenSaveFails(t *testing.T) {
	f := newFixture(t, blocks.NewMemoryStore())
	pageID := uuid.New()

	_, err := f.trySave(pageID, "en", []blocks.Submission{imageSub(inlinePNG()), withID(html("x"), uuid.New())})
	if !errors.Is(err, blocks.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if f.catalog.Len() != 0 || f.assets.Len() != 0 {
		t.Fatalf("expected upload undone, catalog=%d assets=%d", f.catalog.Len(), f.assets.Len())
	}
}

func TestImageReplaceRestoredWhenSaveFails(t *testing.T) {
	f := newFixture(t, blocks.NewMemoryStore())
	pageID := uuid.New()

	first := f.save(t, pageID, "en", []blocks.Submission{imageSub(inlinePNG())})
	blockID := first.Rows[0].ID
	firstURL := f.represent(t, pageID, "en")[0].Data["image"]

	_, err := f.trySave(pageID, "en", []blocks.Submission{
		withID(imageSub(inlinePNG()), blockID),
		withID(html("x"), uuid.New()),
	})
	if err == nil {
		t.Fatalf("expected save to fail")
	}
	if f.catalog.Len() != 1 || f.assets.Len() != 1 {
		t.Fatalf("expected only the original image, catalog=%d assets=%d", f.catalog.Len(), f.assets.Len())
	}
	if got := f.represent(t, pageID, "en")[0].Data["image"]; got != firstURL {
		t.Fatalf("expected %v restored, got %v", firstURL, got)
	}
}

func TestImageClearDeferredUntilCommit(t *testing.T) {
	f := newFixture(t, blocks.NewMemoryStore())
	pageID := uuid.New()

	first := f.save(t, pageID, "en", []blocks.Submission{imageSub(inlinePNG())})
	url := f.represent(t, pageID, "en")[0].Data["image"]

	_, err := f.trySave(pageID, "en", []blocks.Submission{
		withID(imageSub(""), first.Rows[0].ID),
		withID(html("x"), uuid.New()),
	})
	if err == nil {
		t.Fatalf("expected save to fail")
	}
	if f.catalog.Len() != 1 {
		t.Fatalf("a failed save must not delete the image")
	}
	if got := f.represent(t, pageID, "en")[0].Data["image"]; got != url {
		t.Fatalf("expected image %v still resolved, got %v", url, got)
	}
}
