package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/mfenderov/pageocr/pkg/models"
)

// FS stores artifacts on a filesystem.
type FS struct {
	fs   afero.Fs
	root string
}

// NewFS creates a filesystem store rooted at root.
func NewFS(fs afero.Fs, root string) *FS {
	if root == "" {
		root = "Mistral-OCR"
	}
	return &FS{fs: fs, root: root}
}

// Put writes data at key.
func (s *FS) Put(ctx context.Context, key string, data []byte, _ string) (models.FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return models.FileHandle{}, err
	}
	p := s.Location(key)
	if err := s.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return models.FileHandle{}, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, p, data, 0644); err != nil {
		return models.FileHandle{}, fmt.Errorf("failed to write %s: %w", p, err)
	}
	return models.FileHandle{Path: p}, nil
}

// Location returns the file path of key.
func (s *FS) Location(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}
