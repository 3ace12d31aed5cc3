// Package archive stores serialized backup documents outside the job store.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidLocation is returned for locations an archive cannot address.
var ErrInvalidLocation = errors.New("invalid archive location")

// FileArchive writes documents into a single local directory.
type FileArchive struct {
	dir string
}

// NewFileArchive creates the directory if needed.
func NewFileArchive(dir string) (*FileArchive, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty backup directory", ErrInvalidLocation)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &FileArchive{dir: dir}, nil
}

// maxNameAttempts bounds the numbered suffixes Write tries when name is taken.
const maxNameAttempts = 100

// Write stores data under name and returns the file path. The file is
// written to a temporary name first so readers never see a partial document.
// An existing file is never replaced; a numbered suffix is added instead.
func (a *FileArchive) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocation, name)
	}

	tmp, err := os.CreateTemp(a.dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 0; n < maxNameAttempts; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		path := filepath.Join(a.dir, candidate)
		err := os.Link(tmp.Name(), path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to store backup file: %w", err)
		}
	}
	return "", fmt.Errorf("failed to store backup file: too many files named %q", name)
}

// Read loads a document written by Write. Either the returned path or a
// bare file name is accepted; paths outside the directory are refused.
func (a *FileArchive) Read(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := location
	if !filepath.IsAbs(path) && !strings.ContainsRune(path, filepath.Separator) {
		path = filepath.Join(a.dir, path)
	}
	rel, err := filepath.Rel(a.dir, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}

	data, err := os.ReadFile(filepath.Join(a.dir, rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	return data, nil
}
