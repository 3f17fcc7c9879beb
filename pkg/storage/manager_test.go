package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")

	manager, err := NewManager(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, manager.OutputDir())
}

func TestNewManagerIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "already.mp4"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))

	manager, err := NewManager(dir)
	require.NoError(t, err)

	assert.True(t, manager.Exists("already.mp4"))
	assert.False(t, manager.Exists("subdir"))
	assert.False(t, manager.Exists("missing.mp4"))
	assert.Equal(t, 1, manager.Count())
}

func TestManagerSave(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	content := "streamed media content"
	written, err := manager.Save(strings.NewReader(content), "clip.mp4")
	require.NoError(t, err)
	assert.EqualValues(t, len(content), written)

	data, err := os.ReadFile(filepath.Join(dir, "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	assert.True(t, manager.Exists("clip.mp4"))

	// No temp file may survive a successful save
	_, err = os.Stat(filepath.Join(dir, "clip.mp4.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestManagerSaveCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	_, err = manager.Save(strings.NewReader("data"), filepath.Join("2024", "01", "clip.mp4"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "2024", "01", "clip.mp4"))
	assert.NoError(t, err)
}

func TestManagerSaveFailureLeavesNoDestination(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	_, err = manager.Save(failingReader{}, "broken.mp4")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "broken.mp4"))
	assert.True(t, os.IsNotExist(statErr), "failed save must not leave the destination file")
	_, statErr = os.Stat(filepath.Join(dir, "broken.mp4.tmp"))
	assert.True(t, os.IsNotExist(statErr), "failed save must clean up its temp file")
	assert.False(t, manager.Exists("broken.mp4"))
}

func TestManagerExistsSeesFilesCreatedAfterScan(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.mp4"), []byte("x"), 0644))
	assert.True(t, manager.Exists("late.mp4"))
}

func TestManagerPath(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "clip.mp4"), manager.Path("clip.mp4"))
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, os.ErrClosed
}
