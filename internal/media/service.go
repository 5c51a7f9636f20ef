package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/logging"
	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

// Service keeps the image catalog and the asset store in step: every catalog
// entry owns exactly one stored blob.
type Service struct {
	catalog Catalog
	assets  interfaces.AssetStore
	logger  interfaces.Logger
	now     func() time.Time
	newID   func() uuid.UUID
}

type ServiceOption func(*Service)

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithIDGenerator(fn func() uuid.UUID) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewService(catalog Catalog, assets interfaces.AssetStore, opts ...ServiceOption) *Service {
	s := &Service{
		catalog: catalog,
		assets:  assets,
		logger:  logging.NoOp(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store writes blob under name and catalogs it. The blob is removed again if
// the catalog write fails.
func (s *Service) Store(ctx context.Context, blob []byte, name string) (*Image, error) {
	if s.assets == nil {
		return nil, ErrAssetStoreNeeded
	}
	ref, err := s.assets.Put(ctx, blob, name)
	if err != nil {
		return nil, err
	}
	now := s.now()
	img := &Image{
		ID:          s.newID(),
		Path:        ref,
		URL:         s.assets.URL(ref),
		ContentType: mimetype.Detect(blob).String(),
		Size:        int64(len(blob)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.catalog.Create(ctx, img)
	if err != nil {
		if delErr := s.assets.Delete(ctx, ref); delErr != nil {
			s.logger.Warn("media.store.cleanup_failed", "path", ref, "error", delErr)
		}
		return nil, err
	}
	s.logger.Debug("media.image.stored", "image_id", created.ID, "path", ref, "size", created.Size)
	return created, nil
}

// Replace points an existing catalog entry at a new blob and deletes the old
// one.
func (s *Service) Replace(ctx context.Context, id uuid.UUID, blob []byte, name string) (*Image, error) {
	updated, previous, err := s.Swap(ctx, id, blob, name)
	if err != nil {
		return nil, err
	}
	if previous.Path != updated.Path {
		if err := s.DeleteBlob(ctx, previous.Path); err != nil {
			s.logger.Warn("media.replace.cleanup_failed", "image_id", id, "path", previous.Path, "error", err)
		}
	}
	return updated, nil
}

// Swap points an existing catalog entry at a new blob and returns the entry
// as it was before. The previous blob is left in place so the swap can be
// undone with Restore or finished with DeleteBlob.
func (s *Service) Swap(ctx context.Context, id uuid.UUID, blob []byte, name string) (*Image, *Image, error) {
	if s.assets == nil {
		return nil, nil, ErrAssetStoreNeeded
	}
	img, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	previous := cloneImage(img)
	ref, err := s.assets.Put(ctx, blob, name)
	if err != nil {
		return nil, nil, err
	}

	img.Path = ref
	img.URL = s.assets.URL(ref)
	img.ContentType = mimetype.Detect(blob).String()
	img.Size = int64(len(blob))
	img.UpdatedAt = s.now()

	updated, err := s.catalog.Update(ctx, img)
	if err != nil {
		_ = s.assets.Delete(ctx, ref)
		return nil, nil, err
	}
	s.logger.Debug("media.image.replaced", "image_id", id, "path", ref)
	return updated, previous, nil
}

// Restore points a catalog entry back at an earlier version and deletes the
// blob it was swapped to.
func (s *Service) Restore(ctx context.Context, previous *Image) error {
	if previous == nil {
		return nil
	}
	current, err := s.catalog.Get(ctx, previous.ID)
	if err != nil {
		return err
	}
	if _, err := s.catalog.Update(ctx, cloneImage(previous)); err != nil {
		return err
	}
	if current.Path != "" && current.Path != previous.Path {
		if err := s.DeleteBlob(ctx, current.Path); err != nil {
			return err
		}
	}
	s.logger.Debug("media.image.restored", "image_id", previous.ID, "path", previous.Path)
	return nil
}

// DeleteBlob removes a stored blob that no catalog entry points at anymore.
func (s *Service) DeleteBlob(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if s.assets == nil {
		return ErrAssetStoreNeeded
	}
	if err := s.assets.Delete(ctx, path); err != nil {
		return fmt.Errorf("media: delete blob %s: %w", path, err)
	}
	return nil
}

func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*Image, error) {
	return s.catalog.Get(ctx, id)
}

// Delete removes the blob and then the catalog entry.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	img, err := s.catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.assets != nil && img.Path != "" {
		if err := s.assets.Delete(ctx, img.Path); err != nil {
			return fmt.Errorf("media: delete blob %s: %w", img.Path, err)
		}
	}
	if err := s.catalog.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	s.logger.Debug("media.image.deleted", "image_id", id, "path", img.Path)
	return nil
}
