package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage keeps each item in its own file under Dir.
type FileStorage struct {
	Dir   string
	Quota int64
}

// NewFileStorage creates dir if needed.
func NewFileStorage(dir string, quota int64) (*FileStorage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStorage{Dir: dir, Quota: quota}, nil
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.Dir, url.PathEscape(key)+".json")
}

func (f *FileStorage) GetItem(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read item %q: %w", key, err)
	}
	return string(data), true, nil
}

// SetItem writes through a temp file and rename so a reader never sees
// a half-written blob.
func (f *FileStorage) SetItem(key, value string) error {
	if err := checkQuota(f.Quota, key, value); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.Dir, ".item-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write item %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("replace item %q: %w", key, err)
	}
	return nil
}

func (f *FileStorage) RemoveItem(key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove item %q: %w", key, err)
	}
	return nil
}
