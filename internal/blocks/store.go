package blocks

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record is one persisted block. Every language of a page owns its own
// forest of records.
type Record struct {
	bun.BaseModel `bun:"table:page_blocks,alias:pb"`

	ID        uuid.UUID                 `bun:",pk,type:uuid" json:"id"`
	PageID    uuid.UUID                 `bun:"page_id,notnull,type:uuid" json:"page_id"`
	Language  string                    `bun:"language,notnull" json:"language"`
	ParentID  *uuid.UUID                `bun:"parent_id,type:uuid" json:"parent_id,omitempty"`
	Index     int                       `bun:"position,notnull,default:0" json:"index"`
	Type      string                    `bun:"type,notnull" json:"type"`
	Data      map[string]any            `bun:"data,type:jsonb" json:"data"`
	I18NData  map[string]map[string]any `bun:"i18n_data,type:jsonb" json:"i18n_data,omitempty"`
	CreatedAt time.Time                 `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time                 `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Clone copies the record and its top level maps.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cloned := *r
	cloned.BaseModel = bun.BaseModel{}
	if r.ParentID != nil {
		parent := *r.ParentID
		cloned.ParentID = &parent
	}
	cloned.Data = maps.Clone(r.Data)
	if r.I18NData != nil {
		cloned.I18NData = make(map[string]map[string]any, len(r.I18NData))
		for lang, overrides := range r.I18NData {
			cloned.I18NData[lang] = maps.Clone(overrides)
		}
	}
	return &cloned
}

// Store persists block records. Implementations must make RunInTx atomic:
// either every write inside fn is kept or none is.
type Store interface {
	Get(ctx context.Context, pageID, id uuid.UUID) (*Record, error)
	// ListChildren returns the direct children of parentID ordered by index.
	// A nil parentID lists the roots of the page/language forest.
	ListChildren(ctx context.Context, pageID uuid.UUID, language string, parentID *uuid.UUID) ([]*Record, error)
	Upsert(ctx context.Context, rec *Record) (*Record, error)
	// DeleteWhere removes every record of the page/language forest whose id is
	// not in keep, at any depth, and returns what was removed.
	DeleteWhere(ctx context.Context, pageID uuid.UUID, language string, keep []uuid.UUID) ([]*Record, error)
	DeletePage(ctx context.Context, pageID uuid.UUID) ([]*Record, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// SaveTarget scopes a list save to a page forest and an optional parent.
type SaveTarget struct {
	PageID   uuid.UUID
	Language string
	ParentID *uuid.UUID
	Index    int
}

func (t SaveTarget) at(index int) SaveTarget {
	t.Index = index
	return t
}

func (t SaveTarget) under(parent uuid.UUID) SaveTarget {
	t.ParentID = &parent
	t.Index = 0
	return t
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
