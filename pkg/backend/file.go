package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend stores each document as a YAML file under a root directory
type FileBackend struct {
	root string
}

// NewFileBackend creates a file backend. Absolute document names ignore root.
func NewFileBackend(root string) *FileBackend {
	if root == "" {
		root = "."
	}
	return &FileBackend{root: filepath.Clean(root)}
}

// Root returns the configured root directory
func (b *FileBackend) Root() string { return b.root }

// Path resolves a document name to its file path
func (b *FileBackend) Path(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(b.root, name)
}

// Name implements Backend.Name
func (b *FileBackend) Name() string { return "file:" + b.root }

// Load implements Backend.Load
func (b *FileBackend) Load(ctx context.Context, name string, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path := b.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	found, err := decode(data, out)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return found, nil
}

// Save implements Backend.Save
func (b *FileBackend) Save(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(v)
	if err != nil {
		return err
	}

	path := b.Path(name)
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
