package blocks

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process. Transactions are serialised and
// rolled back by restoring a snapshot. Writes made outside a transaction wait
// for a running one to finish, so a rollback never discards them. Reads do
// not wait and may observe uncommitted writes.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	rows map[uuid.UUID]*Record
	now  func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[uuid.UUID]*Record),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Get(_ context.Context, pageID, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.rows[id]
	if !ok || rec.PageID != pageID {
		return nil, &NotFoundError{Resource: "block", Key: id.String()}
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) ListChildren(_ context.Context, pageID uuid.UUID, language string, parentID *uuid.UUID) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, rec := range s.rows {
		if rec.PageID == pageID && rec.Language == language && sameParent(rec.ParentID, parentID) {
			out = append(out, rec.Clone())
		}
	}
	slices.SortFunc(out, compareRecords)
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec *Record) (*Record, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.upsert(rec), nil
}

func (s *MemoryStore) upsert(rec *Record) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := rec.Clone()
	now := s.now()
	if existing, ok := s.rows[rec.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.rows[stored.ID] = stored
	return stored.Clone()
}

func (s *MemoryStore) DeleteWhere(_ context.Context, pageID uuid.UUID, language string, keep []uuid.UUID) ([]*Record, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.deleteWhere(pageID, language, keep), nil
}

func (s *MemoryStore) deleteWhere(pageID uuid.UUID, language string, keep []uuid.UUID) []*Record {
	return s.deleteMatching(func(rec *Record) bool {
		return rec.PageID == pageID && rec.Language == language && !slices.Contains(keep, rec.ID)
	})
}

func (s *MemoryStore) DeletePage(_ context.Context, pageID uuid.UUID) ([]*Record, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.deletePage(pageID), nil
}

func (s *MemoryStore) deletePage(pageID uuid.UUID) []*Record {
	return s.deleteMatching(func(rec *Record) bool { return rec.PageID == pageID })
}

func (s *MemoryStore) deleteMatching(match func(*Record) bool) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []*Record
	for id, rec := range s.rows {
		if match(rec) {
			removed = append(removed, rec)
			delete(s.rows, id)
		}
	}
	slices.SortFunc(removed, compareRecords)
	return removed
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := make(map[uuid.UUID]*Record, len(s.rows))
	for id, rec := range s.rows {
		snapshot[id] = rec.Clone()
	}
	s.mu.RUnlock()

	if err := fn(ctx, memoryTx{store: s}); err != nil {
		s.mu.Lock()
		s.rows = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// memoryTx is the store handed to RunInTx callbacks. Its writes skip txMu,
// which the running transaction holds.
type memoryTx struct {
	store *MemoryStore
}

var _ Store = memoryTx{}

func (t memoryTx) Get(ctx context.Context, pageID, id uuid.UUID) (*Record, error) {
	return t.store.Get(ctx, pageID, id)
}

func (t memoryTx) ListChildren(ctx context.Context, pageID uuid.UUID, language string, parentID *uuid.UUID) ([]*Record, error) {
	return t.store.ListChildren(ctx, pageID, language, parentID)
}

func (t memoryTx) Upsert(_ context.Context, rec *Record) (*Record, error) {
	return t.store.upsert(rec), nil
}

func (t memoryTx) DeleteWhere(_ context.Context, pageID uuid.UUID, language string, keep []uuid.UUID) ([]*Record, error) {
	return t.store.deleteWhere(pageID, language, keep), nil
}

func (t memoryTx) DeletePage(_ context.Context, pageID uuid.UUID) ([]*Record, error) {
	return t.store.deletePage(pageID), nil
}

// RunInTx joins the running transaction.
func (t memoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

// compareRecords orders by language, parent, index then id so listings are
// deterministic.
func compareRecords(a, b *Record) int {
	if a.Language != b.Language {
		if a.Language < b.Language {
			return -1
		}
		return 1
	}
	pa, pb := parentKey(a), parentKey(b)
	if pa != pb {
		if pa < pb {
			return -1
		}
		return 1
	}
	if a.Index != b.Index {
		return a.Index - b.Index
	}
	return slices.Compare(a.ID[:], b.ID[:])
}

func parentKey(rec *Record) string {
	if rec.ParentID == nil {
		return ""
	}
	return rec.ParentID.String()
}
