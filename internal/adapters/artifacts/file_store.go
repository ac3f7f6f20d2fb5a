package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore reads artifacts from a local directory
type FileStore struct {
	dir string
}

// NewFileStore creates a new directory-backed artifact store
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Open opens the named artifact
func (s *FileStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Location(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}

// Location returns the artifact's path on disk
func (s *FileStore) Location(name string) string {
	return filepath.Join(s.dir, name)
}
