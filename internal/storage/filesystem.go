package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedImage is returned for uploads whose extension is not an
// accepted image format.
var ErrUnsupportedImage = errors.New("storage: unsupported image format")

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// FileStore persists uploaded reference images onto the local filesystem,
// keyed by generated names so callers never control the on-disk path.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// SaveImage persists an uploaded image and returns its storage key. The
// original filename only contributes the extension.
func (s *FileStore) SaveImage(ctx context.Context, filename string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("storage: empty upload")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := imageExtensions[ext]; !ok {
		return "", ErrUnsupportedImage
	}

	key := uuid.NewString() + ext
	fullPath := filepath.Join(s.basePath, key)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return key, nil
}

// Open returns the on-disk path for a previously saved key, refusing keys
// that escape the storage root.
func (s *FileStore) Open(key string) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	cleaned := filepath.Clean(strings.TrimLeft(key, "/"))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", errors.New("storage: invalid key")
	}
	fullPath := filepath.Join(s.basePath, cleaned)
	if _, err := os.Stat(fullPath); err != nil {
		return "", fmt.Errorf("storage: stat file: %w", err)
	}
	return fullPath, nil
}
