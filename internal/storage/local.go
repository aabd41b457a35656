package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fileapp/backend/pkg/logger"
)

// LocalStorage keeps uploaded content as flat files inside a single directory.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed creating upload directory %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (l *LocalStorage) path(name string) (string, error) {
	// Stored names are server-generated, but never trust them as paths.
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." {
		return "", fmt.Errorf("invalid stored filename %q", name)
	}
	return filepath.Join(l.dir, base), nil
}

func (l *LocalStorage) Save(ctx context.Context, name string, reader io.Reader, size int64, contentType string) error {
	target, err := l.path(name)
	if err != nil {
		return err
	}

	out, err := os.Create(target)
	if err != nil {
		logger.Error("local_storage_save_failed", err, map[string]interface{}{"name": name})
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		logger.Error("local_storage_save_failed", err, map[string]interface{}{"name": name})
		_ = os.Remove(target)
		return err
	}
	return nil
}

func (l *LocalStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	target, err := l.path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(target)
	if err != nil {
		logger.Error("local_storage_open_failed", err, map[string]interface{}{"name": name})
		return nil, err
	}
	return file, nil
}

func (l *LocalStorage) Delete(ctx context.Context, name string) error {
	target, err := l.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		logger.Error("local_storage_delete_failed", err, map[string]interface{}{"name": name})
		return err
	}
	return nil
}
