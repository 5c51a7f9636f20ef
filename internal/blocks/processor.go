package blocks

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/logging"
	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

// Processor runs list level operations over block forests: representation,
// validation, persistence with cleanup by omission, and rendering. It holds
// no per request state and is safe to share.
type Processor struct {
	registry *Registry
	store    Store
	renderer interfaces.TemplateRenderer
	journal  *Journal
	logger   interfaces.Logger
	newID    func() uuid.UUID
}

type ProcessorOption func(*Processor)

func WithRenderer(renderer interfaces.TemplateRenderer) ProcessorOption {
	return func(p *Processor) {
		p.renderer = renderer
	}
}

func WithLogger(logger interfaces.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithIDGenerator(fn func() uuid.UUID) ProcessorOption {
	return func(p *Processor) {
		if fn != nil {
			p.newID = fn
		}
	}
}

func NewProcessor(registry *Registry, store Store, opts ...ProcessorOption) *Processor {
	p := &Processor{
		registry: registry,
		store:    store,
		logger:   logging.NoOp(),
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithStore returns a copy of the processor bound to store, typically the
// transactional store handed out by Store.RunInTx.
func (p *Processor) WithStore(store Store) *Processor {
	cloned := *p
	cloned.store = store
	return &cloned
}

// WithJournal returns a copy of the processor that records side effects of
// saves in journal instead of applying them right away. Without a journal
// deferred work runs immediately and nothing can be undone.
func (p *Processor) WithJournal(journal *Journal) *Processor {
	cloned := *p
	cloned.journal = journal
	return &cloned
}

func (p *Processor) afterCommit(ctx context.Context, fn func(context.Context) error) error {
	if p.journal == nil {
		return fn(ctx)
	}
	p.journal.OnCommit(fn)
	return nil
}

func (p *Processor) onRollback(fn func(context.Context) error) {
	if p.journal != nil {
		p.journal.OnRollback(fn)
	}
}

func (p *Processor) Registry() *Registry { return p.registry }
func (p *Processor) Store() Store         { return p.store }

// NewInstance resolves the submission's type and binds it.
func (p *Processor) NewInstance(sub Submission) (*Instance, error) {
	t, err := p.registry.Resolve(sub.Type)
	if err != nil {
		return nil, err
	}
	return &Instance{Type: t, ID: sub.ID, Data: sub.Data, I18N: sub.I18NData, proc: p}, nil
}

// FromRecord binds a stored record to its type.
func (p *Processor) FromRecord(rec *Record) (*Instance, error) {
	t, err := p.registry.Resolve(rec.Type)
	if err != nil {
		return nil, err
	}
	id := rec.ID
	return &Instance{Type: t, ID: &id, Data: rec.Data, I18N: rec.I18NData, Record: rec, proc: p}, nil
}

// LoadForest returns the root records of a page forest for language.
func (p *Processor) LoadForest(ctx context.Context, pageID uuid.UUID, language string) ([]*Record, error) {
	if p.store == nil {
		return nil, ErrStoreRequired
	}
	return p.store.ListChildren(ctx, pageID, language, nil)
}

func (p *Processor) children(ctx context.Context, rec *Record) ([]*Record, error) {
	if p.store == nil {
		return nil, ErrStoreRequired
	}
	id := rec.ID
	return p.store.ListChildren(ctx, rec.PageID, rec.Language, &id)
}

// ListToRepresentation represents records in index order. Records sharing an
// index keep their input order.
func (p *Processor) ListToRepresentation(ctx context.Context, records []*Record) ([]Representation, error) {
	out := make([]Representation, 0, len(records))
	for _, rec := range sortByIndex(records) {
		inst, err := p.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		rep, err := inst.Represent(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}

// ValidateList cleans every submission below path and returns the cleaned
// list. The first failure is returned with its full position. A root list
// (empty path) is also checked for block ids used more than once anywhere in
// the tree.
func (p *Processor) ValidateList(ctx context.Context, subs []Submission, path []int) ([]Submission, error) {
	out := make([]Submission, 0, len(subs))
	for idx, sub := range subs {
		inst, err := p.NewInstance(sub)
		if err != nil {
			return nil, err
		}
		data, err := inst.Clean(ctx, append(slices.Clone(path), idx))
		if err != nil {
			return nil, err
		}
		out = append(out, Submission{ID: sub.ID, Type: sub.Type, Data: data, I18NData: inst.I18N})
	}
	if len(path) == 0 {
		if err := p.checkUniqueIDs(out, nil, map[uuid.UUID]struct{}{}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkUniqueIDs fails at the second occurrence of a block id, at any depth.
func (p *Processor) checkUniqueIDs(subs []Submission, path []int, seen map[uuid.UUID]struct{}) error {
	for idx, sub := range subs {
		at := append(slices.Clone(path), idx)
		if sub.ID != nil {
			if _, dup := seen[*sub.ID]; dup {
				return &FieldValidationError{Path: at, FieldID: "id", Message: duplicateIDMessage}
			}
			seen[*sub.ID] = struct{}{}
		}
		t, err := p.registry.Resolve(sub.Type)
		if err != nil {
			return err
		}
		for _, f := range t.Fields() {
			if f.Kind != KindBlockStream {
				continue
			}
			children, err := DecodeSubmissions(sub.Data[f.ID])
			if err != nil {
				return &FieldValidationError{Path: at, FieldID: f.ID, Message: "Invalid block list", Err: err}
			}
			if err := p.checkUniqueIDs(children, at, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveResult lists every record written by a save and, for top level saves,
// every record removed because it was omitted.
type SaveResult struct {
	Rows    []*Record
	Removed []*Record
}

// SaveList persists subs under target. Indexes are rewritten to match list
// position. When target has no parent, every record of the page/language
// forest that was not written is deleted together with its descendants.
// A block id may appear only once in subs, nested lists included.
// Callers wanting atomicity run SaveList on the store given by RunInTx with a
// Journal attached, then commit or roll back the journal and call Release
// once the transaction committed.
func (p *Processor) SaveList(ctx context.Context, target SaveTarget, subs []Submission) (SaveResult, error) {
	if p.store == nil {
		return SaveResult{}, ErrStoreRequired
	}
	if target.ParentID == nil {
		if err := p.checkUniqueIDs(subs, nil, map[uuid.UUID]struct{}{}); err != nil {
			return SaveResult{}, err
		}
	}
	rows, err := p.saveList(ctx, target, subs)
	if err != nil {
		return SaveResult{}, err
	}
	result := SaveResult{Rows: rows}
	if target.ParentID != nil {
		return result, nil
	}

	keep := make([]uuid.UUID, 0, len(rows))
	for _, rec := range rows {
		keep = append(keep, rec.ID)
	}
	removed, err := p.store.DeleteWhere(ctx, target.PageID, target.Language, keep)
	if err != nil {
		return SaveResult{}, err
	}
	result.Removed = removed

	logging.WithPage(p.logger, target.PageID.String(), target.Language).
		Debug("blocks.save.completed", "rows", len(rows), "removed", len(removed))
	return result, nil
}

func (p *Processor) saveList(ctx context.Context, target SaveTarget, subs []Submission) ([]*Record, error) {
	var rows []*Record
	for idx, sub := range subs {
		inst, err := p.NewInstance(sub)
		if err != nil {
			return nil, err
		}
		if sub.ID != nil {
			existing, err := p.resolveExisting(ctx, target, *sub.ID)
			if err != nil {
				return nil, err
			}
			inst.Record = existing
		}
		written, err := inst.Persist(ctx, target.at(idx))
		if err != nil {
			return nil, err
		}
		rows = append(rows, written...)
	}
	return rows, nil
}

// resolveExisting loads a referenced block and checks it belongs to the
// forest and parent being saved. Blocks are never moved silently.
func (p *Processor) resolveExisting(ctx context.Context, target SaveTarget, id uuid.UUID) (*Record, error) {
	rec, err := p.store.Get(ctx, target.PageID, id)
	if err != nil {
		return nil, err
	}
	if rec.Language != target.Language || !sameParent(rec.ParentID, target.ParentID) {
		return nil, &NotFoundError{Resource: "block", Key: id.String()}
	}
	return rec, nil
}

// Release runs type release hooks for removed records. It keeps going after
// a failure and returns every error joined.
func (p *Processor) Release(ctx context.Context, removed []*Record) error {
	var errs []error
	for _, rec := range removed {
		t, err := p.registry.Resolve(rec.Type)
		if err != nil {
			p.logger.Warn("blocks.release.unknown_type", "block_id", rec.ID, "type", rec.Type)
			continue
		}
		releaser, ok := t.(Releaser)
		if !ok {
			continue
		}
		if err := releaser.Release(ctx, rec); err != nil {
			p.logger.Warn("blocks.release.failed", "block_id", rec.ID, "type", rec.Type, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Render concatenates the markup of records in index order.
func (p *Processor) Render(ctx context.Context, records []*Record, locale string) (string, error) {
	var b strings.Builder
	for _, rec := range sortByIndex(records) {
		inst, err := p.FromRecord(rec)
		if err != nil {
			return "", err
		}
		markup, err := inst.Render(ctx, locale)
		if err != nil {
			return "", err
		}
		b.WriteString(markup)
	}
	return b.String(), nil
}

func sortByIndex(records []*Record) []*Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b *Record) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return sorted
}
