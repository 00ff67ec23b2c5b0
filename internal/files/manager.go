package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Manager writes output files below a base directory
type Manager struct {
	fs     afero.Fs
	base   string
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(fs afero.Fs, base string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{fs: fs, base: base, logger: logger}
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := m.fs.Stat(m.resolvePath(path))
	return err == nil
}

// Create opens path for writing, truncating it and creating parent
// directories as needed
func (m *Manager) Create(path string) (afero.File, error) {
	fullPath := m.resolvePath(path)

	if err := m.EnsureDirectory(filepath.Dir(fullPath)); err != nil {
		return nil, err
	}

	m.logger.Debug("Creating file", slog.String("path", fullPath))

	f, err := m.fs.OpenFile(fullPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", fullPath, err)
	}
	return f, nil
}

// Remove deletes path. A missing file is not an error.
func (m *Manager) Remove(path string) error {
	fullPath := m.resolvePath(path)
	if err := m.fs.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", fullPath, err)
	}
	m.logger.Debug("Removed file", slog.String("path", fullPath))
	return nil
}

// EnsureDirectory creates a directory if it doesn't exist
func (m *Manager) EnsureDirectory(path string) error {
	fullPath := m.resolvePath(path)
	if err := m.fs.MkdirAll(fullPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fullPath, err)
	}
	return nil
}

// resolvePath resolves a path relative to the base directory
func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) || m.base == "" {
		return path
	}
	return filepath.Join(m.base, path)
}
