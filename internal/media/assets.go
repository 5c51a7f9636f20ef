package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goliatone/go-pageblocks/pkg/interfaces"
)

// FilesystemStore writes blobs below a directory and serves them from
// baseURL. References are slash separated paths relative to the directory.
type FilesystemStore struct {
	dir     string
	baseURL string
}

var _ interfaces.AssetStore = (*FilesystemStore)(nil)

func NewFilesystemStore(dir, baseURL string) *FilesystemStore {
	return &FilesystemStore{dir: dir, baseURL: baseURL}
}

func (s *FilesystemStore) Put(_ context.Context, blob []byte, name string) (string, error) {
	ref, err := cleanRef(name)
	if err != nil {
		return "", err
	}
	if len(blob) == 0 {
		return "", ErrEmptyBlob
	}
	target := filepath.Join(s.dir, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("media: create asset dir: %w", err)
	}
	if err := os.WriteFile(target, blob, 0o644); err != nil {
		return "", fmt.Errorf("media: write asset: %w", err)
	}
	return ref, nil
}

func (s *FilesystemStore) Delete(_ context.Context, ref string) error {
	cleaned, err := cleanRef(ref)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, filepath.FromSlash(cleaned)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FilesystemStore) URL(ref string) string {
	return joinURL(s.baseURL, ref)
}

// MemoryStore keeps blobs in memory. It backs tests and the memory driver.
type MemoryStore struct {
	mu      sync.RWMutex
	blobs   map[string][]byte
	baseURL string
}

var _ interfaces.AssetStore = (*MemoryStore)(nil)

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte), baseURL: baseURL}
}

func (s *MemoryStore) Put(_ context.Context, blob []byte, name string) (string, error) {
	ref, err := cleanRef(name)
	if err != nil {
		return "", err
	}
	if len(blob) == 0 {
		return "", ErrEmptyBlob
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = append([]byte(nil), blob...)
	return ref, nil
}

func (s *MemoryStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
	return nil
}

func (s *MemoryStore) URL(ref string) string {
	return joinURL(s.baseURL, ref)
}

// Blob returns a stored blob, for tests and diagnostics.
func (s *MemoryStore) Blob(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[ref]
	return blob, ok
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func cleanRef(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return cleaned, nil
}

func joinURL(base, ref string) string {
	if base == "" {
		return "/" + ref
	}
	return strings.TrimRight(base, "/") + "/" + ref
}
