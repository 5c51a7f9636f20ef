package pages

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrNotFound      = errors.New("pages: page not found")
	ErrSlugConflict  = errors.New("pages: slug already in use")
	ErrRepoRequired  = errors.New("pages: page repository is required")
	ErrBlocksMissing = errors.New("pages: block processor is required")
)

// Page owns one block forest per language. Title is keyed by language.
type Page struct {
	bun.BaseModel `bun:"table:pages,alias:p"`

	ID        uuid.UUID         `bun:",pk,type:uuid" json:"id"`
	Slug      string            `bun:"slug,notnull,unique" json:"slug"`
	Title     map[string]string `bun:"title,type:jsonb" json:"title"`
	CreatedAt time.Time         `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time         `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// PageNotFoundError reports a missing page by id or slug.
type PageNotFoundError struct {
	Key string
}

func (e *PageNotFoundError) Error() string {
	return fmt.Sprintf("page %q not found", e.Key)
}

func (e *PageNotFoundError) Unwrap() error { return ErrNotFound }

// SlugConflictError is returned when an explicit slug belongs to another
// page. Derived slugs are suffixed instead.
type SlugConflictError struct {
	Slug string
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("pages: slug %q already in use", e.Slug)
}

func (e *SlugConflictError) Unwrap() error { return ErrSlugConflict }

func clonePage(p *Page) *Page {
	if p == nil {
		return nil
	}
	cloned := *p
	cloned.BaseModel = bun.BaseModel{}
	cloned.Title = maps.Clone(p.Title)
	return &cloned
}
