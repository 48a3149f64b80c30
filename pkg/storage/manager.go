package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	errs "airgapintel/pkg/errors"
	"airgapintel/pkg/sanitize"
)

// Manager writes feed files into the category tree under one root directory
type Manager struct {
	root    string
	written map[string]bool
	mu      sync.RWMutex
}

// NewManager creates the root directory if needed. Failure here is fatal for
// a run.
func NewManager(root string) (*Manager, error) {
	m := &Manager{
		root:    root,
		written: make(map[string]bool),
	}
	if err := m.Ensure(); err != nil {
		return nil, err
	}
	return m, nil
}

// Ensure creates the root if it is missing and checks that it is a directory
func (m *Manager) Ensure() error {
	if err := os.MkdirAll(m.root, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	info, err := os.Stat(m.root)
	if err != nil {
		return fmt.Errorf("failed to stat output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", m.root)
	}
	return nil
}

// Path returns where a feed would be stored
func (m *Manager) Path(category, name string) string {
	return filepath.Join(m.root, sanitize.Filename(category), sanitize.Filename(name))
}

// Persist writes data to <root>/<category>/<name>, replacing any existing
// file. Both path components are sanitized.
func (m *Manager) Persist(category, name string, data []byte) (string, error) {
	dest := m.Path(category, name)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", errs.Persist(dest, fmt.Errorf("failed to create category directory: %w", err))
	}

	if err := writeAtomic(dest, data); err != nil {
		return "", errs.Persist(dest, err)
	}

	m.mu.Lock()
	m.written[dest] = true
	m.mu.Unlock()

	return dest, nil
}

// WriteArtifact atomically writes a run-level file such as the manifest
// directly under the root
func (m *Manager) WriteArtifact(name string, data []byte) (string, error) {
	dest := filepath.Join(m.root, sanitize.Filename(name))
	if err := writeAtomic(dest, data); err != nil {
		return "", errs.Persist(dest, err)
	}
	return dest, nil
}

// writeAtomic writes to a temporary file in the destination directory and
// renames it into place
func writeAtomic(dest string, data []byte) error {
	out, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	_, err = out.Write(data)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempFile, dest); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// Root returns the output directory path
func (m *Manager) Root() string {
	return m.root
}

// WrittenCount returns the number of distinct feed paths written
func (m *Manager) WrittenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.written)
}
