package storage

import (
	"io/fs"
	"sync"
)

// MemFileSystem is an in-memory FileSystem for tests and dry runs
type MemFileSystem struct {
	mu        sync.RWMutex
	files     map[string][]byte
	writeErr  error
	saveCount int
}

// NewMemFileSystem creates an empty in-memory file system
func NewMemFileSystem() *MemFileSystem {
	return &MemFileSystem{files: make(map[string][]byte)}
}

func (m *MemFileSystem) LoadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *MemFileSystem) SaveFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	m.files[path] = append([]byte(nil), data...)
	m.saveCount++
	return nil
}

func (m *MemFileSystem) FileExists(path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.files[path]
	return ok, nil
}

func (m *MemFileSystem) DeleteFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.files, path)
	return nil
}

// FailWrites makes every following SaveFile return err; nil restores writes
func (m *MemFileSystem) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SaveCount returns the number of successful writes
func (m *MemFileSystem) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCount
}
