package media_test

import (
	"context"
	"errors"
	"testing"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/media"
	"github.com/goliatone/go-pageblocks/internal/storage"
	"github.com/goliatone/go-pageblocks/pkg/testsupport"
)

func TestBunCatalogWithCache(t *testing.T) {
	ctx := context.Background()
	db, err := testsupport.NewBunDB()
	if err != nil {
		t.Fatalf("new sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cacheCfg := repocache.DefaultConfig()
	cacheCfg.TTL = time.Minute
	cacheService, err := repocache.NewCacheService(cacheCfg)
	if err != nil {
		t.Fatalf("cache service: %v", err)
	}
	catalog := media.NewBunCatalogWithCache(db, cacheService, repocache.NewDefaultKeySerializer())
	assets := media.NewMemoryStore("/media/")
	svc := media.NewService(catalog, assets)

	img, err := svc.Store(ctx, []byte("first"), "a.txt")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	resolved, err := svc.Resolve(ctx, img.ID)
	if err != nil || resolved.URL != "/media/a.txt" {
		t.Fatalf("unexpected resolve %+v %v", resolved, err)
	}

	if _, err := svc.Replace(ctx, img.ID, []byte("second"), "b.txt"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	resolved, err = svc.Resolve(ctx, img.ID)
	if err != nil || resolved.URL != "/media/b.txt" || resolved.Size != int64(len("second")) {
		t.Fatalf("expected replaced image, got %+v %v", resolved, err)
	}

	if err := svc.Delete(ctx, img.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Resolve(ctx, img.ID); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := catalog.Get(ctx, uuid.New()); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}
