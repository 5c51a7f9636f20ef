package blocks

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/goliatone/go-pageblocks/internal/media"
)

// ImageStore is the image catalog the image block writes through.
// media.Service implements it.
type ImageStore interface {
	Store(ctx context.Context, blob []byte, name string) (*media.Image, error)
	// Swap re-points a catalog entry at a new blob and returns the entry as
	// it was. The old blob stays until DeleteBlob or Restore.
	Swap(ctx context.Context, id uuid.UUID, blob []byte, name string) (*media.Image, *media.Image, error)
	Restore(ctx context.Context, previous *media.Image) error
	DeleteBlob(ctx context.Context, path string) error
	Resolve(ctx context.Context, id uuid.UUID) (*media.Image, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const (
	imageField   = "image"
	imageIDField = "image_id"
)

// ImageType stores either an external reference under "image" or a catalog
// id under "image_id". Inline base64 uploads are moved to the catalog on save.
type ImageType struct {
	BaseType
	images  ImageStore
	newName func() string
}

var (
	_ Representer       = (*ImageType)(nil)
	_ Cleaner           = (*ImageType)(nil)
	_ InternalConverter = (*ImageType)(nil)
	_ Releaser          = (*ImageType)(nil)
)

func NewImageType(images ImageStore) *ImageType {
	return &ImageType{
		BaseType: NewType(Meta{
			ID:          TypeImage,
			Name:        "Image",
			Description: "A simple image",
			Template:    "blocks/image.html",
		},
			Field{ID: imageField, Label: "Image", Kind: KindImage},
			Field{ID: "alt", Label: "Alt text", Kind: KindText, MultiLingual: true},
			Field{ID: "class", Label: "Class", Kind: KindText},
		),
		images:  images,
		newName: opaqueName,
	}
}

func (t *ImageType) Represent(ctx context.Context, _ *Instance, data map[string]any) (map[string]any, error) {
	id, ok := imageID(data)
	if !ok || t.images == nil {
		return data, nil
	}
	img, err := t.images.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			return data, nil
		}
		return nil, err
	}
	data[imageField] = img.URL
	return data, nil
}

func (t *ImageType) Clean(_ context.Context, _ *Instance, data map[string]any) (map[string]any, error) {
	value, _ := data[imageField].(string)
	value = strings.TrimSpace(value)
	if value == "" || isImageReference(value) {
		return data, nil
	}
	if _, err := decodeImage(value); err != nil {
		return nil, &FieldValidationError{
			FieldID: imageField,
			Message: "Invalid image data",
			Err:     &InvalidImageDataError{Err: err},
		}
	}
	return data, nil
}

// ToInternal moves inline uploads to the catalog. Uploads are undone and
// previous images deleted through the processor journal, so a save that is
// rolled back leaves the catalog as it found it.
func (t *ImageType) ToInternal(ctx context.Context, inst *Instance, data map[string]any) (map[string]any, error) {
	var previous *uuid.UUID
	if inst.Record != nil {
		if id, ok := imageID(inst.Record.Data); ok {
			previous = &id
		}
	}

	value, _ := data[imageField].(string)
	value = strings.TrimSpace(value)
	delete(data, imageField)
	delete(data, imageIDField)

	switch {
	case value == "":
		if previous != nil {
			if err := t.deleteAfterCommit(ctx, inst, *previous); err != nil {
				return nil, err
			}
		}
		return data, nil

	case isImageReference(value):
		if previous != nil {
			if t.images != nil {
				if img, err := t.images.Resolve(ctx, *previous); err == nil && img.URL == value {
					data[imageIDField] = previous.String()
					return data, nil
				}
			}
			if err := t.deleteAfterCommit(ctx, inst, *previous); err != nil {
				return nil, err
			}
		}
		data[imageField] = value
		return data, nil
	}

	if t.images == nil {
		return nil, ErrImageStoreRequired
	}
	blob, err := decodeImage(value)
	if err != nil {
		return nil, &InvalidImageDataError{Err: err}
	}
	name := t.newName() + "." + imageExtension(blob)

	var img *media.Image
	if previous != nil {
		img, err = t.replace(ctx, inst, *previous, blob, name)
		if errors.Is(err, media.ErrNotFound) {
			img, err = t.store(ctx, inst, blob, name)
		}
	} else {
		img, err = t.store(ctx, inst, blob, name)
	}
	if err != nil {
		return nil, fmt.Errorf("blocks: store image: %w", err)
	}
	data[imageIDField] = img.ID.String()
	return data, nil
}

func (t *ImageType) store(ctx context.Context, inst *Instance, blob []byte, name string) (*media.Image, error) {
	img, err := t.images.Store(ctx, blob, name)
	if err != nil {
		return nil, err
	}
	inst.proc.onRollback(func(ctx context.Context) error {
		return t.deleteImage(ctx, img.ID)
	})
	return img, nil
}

func (t *ImageType) replace(ctx context.Context, inst *Instance, id uuid.UUID, blob []byte, name string) (*media.Image, error) {
	img, previous, err := t.images.Swap(ctx, id, blob, name)
	if err != nil {
		return nil, err
	}
	inst.proc.onRollback(func(ctx context.Context) error {
		return t.images.Restore(ctx, previous)
	})
	if previous.Path == img.Path {
		return img, nil
	}
	if err := inst.proc.afterCommit(ctx, func(ctx context.Context) error {
		return t.images.DeleteBlob(ctx, previous.Path)
	}); err != nil {
		return nil, err
	}
	return img, nil
}

func (t *ImageType) deleteAfterCommit(ctx context.Context, inst *Instance, id uuid.UUID) error {
	return inst.proc.afterCommit(ctx, func(ctx context.Context) error {
		return t.deleteImage(ctx, id)
	})
}

// Release deletes the catalog image of a removed block.
func (t *ImageType) Release(ctx context.Context, rec *Record) error {
	id, ok := imageID(rec.Data)
	if !ok {
		return nil
	}
	return t.deleteImage(ctx, id)
}

func (t *ImageType) deleteImage(ctx context.Context, id uuid.UUID) error {
	if t.images == nil {
		return ErrImageStoreRequired
	}
	if err := t.images.Delete(ctx, id); err != nil && !errors.Is(err, media.ErrNotFound) {
		return err
	}
	return nil
}

func imageID(data map[string]any) (uuid.UUID, bool) {
	raw, _ := data[imageIDField].(string)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func isImageReference(value string) bool {
	return strings.HasPrefix(value, "/") || strings.HasPrefix(strings.ToLower(value), "http")
}

// decodeImage accepts plain base64 or a data URL.
func decodeImage(value string) ([]byte, error) {
	if strings.HasPrefix(value, "data:") {
		if _, payload, ok := strings.Cut(value, ";base64,"); ok {
			value = payload
		}
	}
	value = strings.Join(strings.Fields(value), "")
	if value == "" {
		return nil, errors.New("empty payload")
	}
	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		blob, err := enc.DecodeString(value)
		if err == nil {
			if len(blob) == 0 {
				return nil, errors.New("empty payload")
			}
			return blob, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func imageExtension(blob []byte) string {
	ext := strings.TrimPrefix(mimetype.Detect(blob).Extension(), ".")
	switch ext {
	case "":
		return "bin"
	case "jpeg":
		return "jpg"
	}
	return ext
}

func opaqueName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
