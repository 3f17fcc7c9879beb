package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// copyBufferSize bounds the chunk size used when streaming a download to
// disk; media files are large and must never be buffered whole.
const copyBufferSize = 64 * 1024

// Manager handles the output directory: existence checks that make
// reruns cheap, and streamed atomic writes so a failed download never
// leaves a corrupt destination file.
type Manager struct {
	outputDir string
	existing  map[string]bool
	mu        sync.RWMutex
}

// NewManager creates a storage manager rooted at outputDir, creating the
// directory if needed and indexing files already present.
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		existing:  make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles indexes already downloaded files for skip checks
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			m.existing[entry.Name()] = true
		}
	}

	return nil
}

// Exists reports whether a destination file is already present. Presence
// only: a truncated file from a crashed run still counts as existing.
func (m *Manager) Exists(filename string) bool {
	m.mu.RLock()
	known := m.existing[filename]
	m.mu.RUnlock()
	if known {
		return true
	}

	// Double-check on disk in case the file appeared after the scan
	if _, err := os.Stat(m.Path(filename)); err == nil {
		m.mu.Lock()
		m.existing[filename] = true
		m.mu.Unlock()
		return true
	}

	return false
}

// Save streams the reader to the destination file in bounded chunks,
// writing through a temporary file and renaming atomically. Parent
// directories are created first. Returns the number of bytes written.
func (m *Manager) Save(r io.Reader, filename string) (int64, error) {
	dest := m.Path(filename)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create parent directory: %w", err)
	}

	tempFile := dest + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	written, err := io.CopyBuffer(out, r, make([]byte, copyBufferSize))
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return written, fmt.Errorf("failed to write media data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return written, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, dest); err != nil {
		os.Remove(tempFile)
		return written, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.existing[filename] = true
	m.mu.Unlock()

	return written, nil
}

// Path returns the absolute destination path for a filename
func (m *Manager) Path(filename string) string {
	return filepath.Join(m.outputDir, filename)
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Count returns the number of files known to exist in the output directory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.existing)
}
