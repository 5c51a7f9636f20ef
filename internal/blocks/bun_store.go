package blocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStore persists records in the page_blocks table. It works on a bun.DB
// or, inside RunInTx, on the transaction.
type BunStore struct {
	db  *bun.DB
	idb bun.IDB
}

var _ Store = (*BunStore)(nil)

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db, idb: db}
}

func (s *BunStore) Get(ctx context.Context, pageID, id uuid.UUID) (*Record, error) {
	rec := new(Record)
	err := s.idb.NewSelect().
		Model(rec).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.page_id = ?", pageID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "block", Key: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("blocks: get %s: %w", id, err)
	}
	return rec, nil
}

func (s *BunStore) ListChildren(ctx context.Context, pageID uuid.UUID, language string, parentID *uuid.UUID) ([]*Record, error) {
	var records []*Record
	q := s.idb.NewSelect().
		Model(&records).
		Where("?TableAlias.page_id = ?", pageID).
		Where("?TableAlias.language = ?", language).
		OrderExpr("?TableAlias.position ASC").
		OrderExpr("?TableAlias.id ASC")
	if parentID == nil {
		q = q.Where("?TableAlias.parent_id IS NULL")
	} else {
		q = q.Where("?TableAlias.parent_id = ?", *parentID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("blocks: list children: %w", err)
	}
	return records, nil
}

func (s *BunStore) Upsert(ctx context.Context, rec *Record) (*Record, error) {
	stored := rec.Clone()
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	if stored.Data == nil {
		stored.Data = map[string]any{}
	}

	_, err := s.idb.NewInsert().
		Model(stored).
		On("CONFLICT (id) DO UPDATE").
		Set("page_id = EXCLUDED.page_id").
		Set("language = EXCLUDED.language").
		Set("parent_id = EXCLUDED.parent_id").
		Set("position = EXCLUDED.position").
		Set("type = EXCLUDED.type").
		Set("data = EXCLUDED.data").
		Set("i18n_data = EXCLUDED.i18n_data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("blocks: upsert %s: %w", stored.ID, err)
	}
	return stored, nil
}

func (s *BunStore) DeleteWhere(ctx context.Context, pageID uuid.UUID, language string, keep []uuid.UUID) ([]*Record, error) {
	var stale []*Record
	q := s.idb.NewSelect().
		Model(&stale).
		Where("?TableAlias.page_id = ?", pageID).
		Where("?TableAlias.language = ?", language)
	if len(keep) > 0 {
		q = q.Where("?TableAlias.id NOT IN (?)", bun.In(keep))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("blocks: select stale: %w", err)
	}
	return stale, s.deleteRecords(ctx, stale)
}

func (s *BunStore) DeletePage(ctx context.Context, pageID uuid.UUID) ([]*Record, error) {
	var records []*Record
	if err := s.idb.NewSelect().
		Model(&records).
		Where("?TableAlias.page_id = ?", pageID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("blocks: select page blocks: %w", err)
	}
	return records, s.deleteRecords(ctx, records)
}

func (s *BunStore) deleteRecords(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	if _, err := s.idb.NewDelete().
		Model((*Record)(nil)).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Exec(ctx); err != nil {
		return fmt.Errorf("blocks: delete: %w", err)
	}
	return nil
}

// RunInTx runs fn inside a database transaction. Nested calls reuse the
// outer transaction.
func (s *BunStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if _, inTx := s.idb.(bun.Tx); inTx || s.db == nil {
		return fn(ctx, s)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &BunStore{db: s.db, idb: tx})
	})
}
