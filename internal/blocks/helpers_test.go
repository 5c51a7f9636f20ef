package blocks_test

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/goliatone/go-pageblocks/internal/blocks"
	"github.com/goliatone/go-pageblocks/internal/markdown"
	"github.com/goliatone/go-pageblocks/internal/media"
	"github.com/goliatone/go-pageblocks/internal/render"
	"github.com/goliatone/go-pageblocks/pkg/interfaces"
	"github.com/google/uuid"
)

var pngBlob = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func inlinePNG() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBlob)
}

type fixture struct {
	store   blocks.Store
	catalog *media.MemoryCatalog
	assets  *media.MemoryStore
	proc    *blocks.Processor
}

func newFixture(t *testing.T, store blocks.Store, extra ...blocks.Type) *fixture {
	t.Helper()
	catalog := media.NewMemoryCatalog()
	assets := media.NewMemoryStore("/media/")
	images := media.NewService(catalog, assets)
	md := markdown.NewRenderer(markdown.Options{})

	types := append(blocks.DefaultTypes(images, md), extra...)
	available := blocks.DefaultTypeIDs()
	for _, typ := range extra {
		available = append(available, typ.Meta().ID)
	}
	registry, err := blocks.NewRegistry(available, types...)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	renderer, err := render.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return &fixture{
		store:   store,
		catalog: catalog,
		assets:  assets,
		proc:    blocks.NewProcessor(registry, store, blocks.WithRenderer(renderer)),
	}
}

// save validates then persists subs as the root forest of page/language.
func (f *fixture) save(t *testing.T, pageID uuid.UUID, language string, subs []blocks.Submission) blocks.SaveResult {
	t.Helper()
	result, err := f.trySave(pageID, language, subs)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return result
}

func (f *fixture) trySave(pageID uuid.UUID, language string, subs []blocks.Submission) (blocks.SaveResult, error) {
	ctx := context.Background()
	cleaned, err := f.proc.ValidateList(ctx, subs, nil)
	if err != nil {
		return blocks.SaveResult{}, err
	}
	journal := blocks.NewJournal()
	var result blocks.SaveResult
	err = f.store.RunInTx(ctx, func(ctx context.Context, tx blocks.Store) error {
		var err error
		result, err = f.proc.WithStore(tx).WithJournal(journal).SaveList(ctx, blocks.SaveTarget{PageID: pageID, Language: language}, cleaned)
		return err
	})
	if err != nil {
		if rbErr := journal.Rollback(ctx); rbErr != nil {
			return blocks.SaveResult{}, rbErr
		}
		return blocks.SaveResult{}, err
	}
	return result, journal.Commit(ctx)
}

func (f *fixture) represent(t *testing.T, pageID uuid.UUID, language string) []blocks.Representation {
	t.Helper()
	ctx := context.Background()
	roots, err := f.proc.LoadForest(ctx, pageID, language)
	if err != nil {
		t.Fatalf("load forest: %v", err)
	}
	reps, err := f.proc.ListToRepresentation(ctx, roots)
	if err != nil {
		t.Fatalf("represent: %v", err)
	}
	return reps
}

func html(value string) blocks.Submission {
	return blocks.Submission{Type: blocks.TypeHTML, Data: map[string]any{"html": value}}
}

func withID(sub blocks.Submission, id uuid.UUID) blocks.Submission {
	sub.ID = &id
	return sub
}

func container(children ...map[string]any) blocks.Submission {
	list := make([]any, len(children))
	for i, child := range children {
		list[i] = child
	}
	return blocks.Submission{Type: blocks.TypeContainer, Data: map[string]any{"blocks": list}}
}

func child(typeID string, data map[string]any) map[string]any {
	return map[string]any{"type": typeID, "data": data}
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Trace(msg string, args ...any) { l.record("trace", msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }
func (l *recordingLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args) }

func (l *recordingLogger) WithContext(context.Context) interfaces.Logger { return l }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}
