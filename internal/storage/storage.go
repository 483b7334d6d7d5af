package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem is the file access used by the persistence layer
type FileSystem interface {
	LoadFile(path string) ([]byte, error)
	SaveFile(path string, data []byte) error
	FileExists(path string) (bool, error)
	DeleteFile(path string) error
}

// OSFileSystem implements FileSystem on the local disk
type OSFileSystem struct{}

// NewOSFileSystem returns the local file system
func NewOSFileSystem() OSFileSystem {
	return OSFileSystem{}
}

// LoadFile reads the whole file
func (OSFileSystem) LoadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// SaveFile writes data atomically: a temp file next to the target is renamed over it
func (OSFileSystem) SaveFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// FileExists reports whether path exists
func (OSFileSystem) FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// DeleteFile removes a file; a missing file is not an error
func (OSFileSystem) DeleteFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
