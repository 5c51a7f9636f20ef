package media

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	ErrNotFound         = errors.New("media: image not found")
	ErrEmptyBlob        = errors.New("media: blob is empty")
	ErrAssetStoreNeeded = errors.New("media: asset store is required")
	ErrInvalidName      = errors.New("media: invalid asset name")
)

// Image is a catalog entry pointing at a blob in the asset store.
type Image struct {
	bun.BaseModel `bun:"table:block_images,alias:bimg"`

	ID          uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Path        string    `bun:"path,notnull" json:"path"`
	URL         string    `bun:"url,notnull" json:"url"`
	ContentType string    `bun:"content_type" json:"content_type"`
	Size        int64     `bun:"size,notnull,default:0" json:"size"`
	CreatedAt   time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("image %q not found", e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func cloneImage(img *Image) *Image {
	if img == nil {
		return nil
	}
	cloned := *img
	cloned.BaseModel = bun.BaseModel{}
	return &cloned
}
