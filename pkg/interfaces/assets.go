package interfaces

import "context"

// AssetStore persists binary blobs and hands back an opaque reference that can
// later be resolved to a public URL or deleted.
type AssetStore interface {
	Put(ctx context.Context, blob []byte, name string) (string, error)
	Delete(ctx context.Context, ref string) error
	URL(ref string) string
}
