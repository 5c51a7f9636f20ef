package storage_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-pageblocks/internal/storage"
)

var seq atomic.Int64

func memoryDSN() string {
	return fmt.Sprintf("file:storage_test_%d?mode=memory&cache=shared", seq.Add(1))
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(storage.DriverSQLite, memoryDSN())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}

	for _, table := range []string{"pages", "page_blocks", "block_images"} {
		var count int
		if err := db.NewRaw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(ctx, &count); err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if count != 1 {
			t.Fatalf("expected table %s to exist", table)
		}
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := storage.Open("oracle", "dsn"); !errors.Is(err, storage.ErrDriverUnsupported) {
		t.Fatalf("expected ErrDriverUnsupported, got %v", err)
	}
	if _, err := storage.Open(storage.DriverSQLite, " "); !errors.Is(err, storage.ErrDSNRequired) {
		t.Fatalf("expected ErrDSNRequired, got %v", err)
	}
}
