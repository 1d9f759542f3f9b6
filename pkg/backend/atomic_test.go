package backend

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile_ReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.yaml")

	require.NoError(t, atomicWriteFile(path, []byte("a: 1\n"), 0o644))
	require.NoError(t, atomicWriteFile(path, []byte("b: 2\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b: 2\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
	assert.Equal(t, "doc.yaml", entries[0].Name())
}

func TestAtomicWriteFile_RenameFailureKeepsDestination(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Windows retries the rename after removing the destination")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	require.NoError(t, os.Mkdir(path, 0o755))

	err := atomicWriteFile(path, []byte("a: 1\n"), 0o644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rename")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "destination is not removed on failure")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSyncDir(t *testing.T) {
	require.NoError(t, syncDir(t.TempDir()))
	assert.Error(t, syncDir(filepath.Join(t.TempDir(), "missing")))
}
