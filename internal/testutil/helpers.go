package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateDummyFile writes content to path, creating parent directories.
func CreateDummyFile(t *testing.T, path string, content string) {
	t.Helper()
	CreateDummyBytes(t, path, []byte(content))
}

// CreateDummyBytes writes raw bytes to path, creating parent directories.
func CreateDummyBytes(t *testing.T, path string, data []byte) {
	t.Helper()
	fullPath := filepath.Clean(path)
	dir := filepath.Dir(fullPath)
	require.NoError(t, os.MkdirAll(dir, 0755), "Failed to create directory %s for dummy file", dir)
	require.NoError(t, os.WriteFile(fullPath, data, 0644), "Failed to write dummy file %s", fullPath)
}

// CreateDummyDir ensures a directory exists at path.
func CreateDummyDir(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Clean(path), 0755), "Failed to create dummy directory %s", path)
}

// CreateTree creates files under root from a map of slash-separated relative
// paths to contents.
func CreateTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, data := range files {
		CreateDummyBytes(t, filepath.Join(root, filepath.FromSlash(rel)), data)
	}
}

// ReadFile reads path or fails the test.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read %s", path)
	return data
}
