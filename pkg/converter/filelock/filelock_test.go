package filelock

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "a.txt.lock")
	lock := NewFileLock(lockPath)
	assert.Equal(t, lockPath, lock.Path())

	require.NoError(t, lock.Lock())
	require.NoError(t, lock.Unlock())
}

func TestTryLock_HeldByOther(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "a.txt.lock")
	first := NewFileLock(lockPath)
	require.NoError(t, first.Lock())
	defer first.Unlock()

	second := NewFileLock(lockPath)
	acquired, err := second.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired)
}

func TestAtomicWrite_ReplacesContentAndPerm(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0600))

	require.NoError(t, AtomicWrite(target, []byte("new"), 0640))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	if runtime.GOOS != "windows" {
		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestAtomicWrite_MissingDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "missing", "a.txt")
	err := AtomicWrite(target, []byte("x"), 0644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create temp file")
}

func TestLockAndWrite_RemovesLockFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0644))

	require.NoError(t, LockAndWrite(target, []byte("new"), 0644))

	_, err := os.Stat(target + lockSuffix)
	assert.True(t, os.IsNotExist(err))
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestLockAndWrite_Concurrent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(target, []byte("seed"), 0644))

	payloads := []string{"alpha", "bravo", "charlie", "delta"}
	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			assert.NoError(t, LockAndWrite(target, []byte(p), 0644))
		}(p)
	}
	wg.Wait()

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, payloads, string(got))
}
