package fsxlocal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alebhayan/King-Laminaat/pkg/fsx"
)

// LocalFileSystem implements fsx.FileSystem on local disk.
type LocalFileSystem struct {
	basePath string
}

// NewLocalFileSystem creates basePath if needed and roots every key under it.
func NewLocalFileSystem(basePath string) (*LocalFileSystem, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return &LocalFileSystem{basePath: absPath}, nil
}

func (fs *LocalFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	full, err := fs.fullPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fsx.ErrNotFound(path)
		}
		return nil, fsx.ErrIOFailure("read", path, err)
	}
	return data, nil
}

func (fs *LocalFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	full, err := fs.fullPath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fsx.ErrIOFailure("stat", path, err)
	}
	return true, nil
}

// WriteFile writes through a temp file and renames it into place so readers
// never see a partial archive.
func (fs *LocalFileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	full, err := fs.fullPath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fsx.ErrIOFailure("mkdir", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fsx.ErrIOFailure("create", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fsx.ErrIOFailure("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fsx.ErrIOFailure("close", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fsx.ErrIOFailure("rename", path, err)
	}
	return nil
}

// GetBasePath returns the absolute root directory.
func (fs *LocalFileSystem) GetBasePath() string {
	return fs.basePath
}

func (fs *LocalFileSystem) fullPath(path string) (string, error) {
	key, err := fsx.Clean(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(fs.basePath, filepath.FromSlash(key)), nil
}
