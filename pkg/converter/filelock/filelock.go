// Package filelock serializes rewrites of a file through an advisory lock
// file and replaces the file contents atomically.
package filelock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockSuffix is appended to a target path to name its lock file.
const lockSuffix = ".lock"

// FileLock wraps a flock lock file.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock returns a lock backed by the file at path. The file is created
// on first Lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{flock: flock.New(path), path: path}
}

// Path returns the lock file path.
func (fl *FileLock) Path() string { return fl.path }

// Lock blocks until the exclusive lock is held.
func (fl *FileLock) Lock() error {
	if err := fl.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fl.path, err)
	}
	return nil
}

// TryLock acquires the lock without blocking. It reports false when another
// holder owns it.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", fl.path, err)
	}
	return acquired, nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}

// AtomicWrite replaces path with data by writing a temp file in the same
// directory and renaming it over the target. The target keeps perm. On
// failure the original file is left untouched.
func AtomicWrite(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".utf-cast-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions on temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	committed = true
	return nil
}

// LockAndWrite holds "<path>.lock" for the duration of an AtomicWrite. The
// lock file is removed afterwards so it does not linger in scanned trees.
func LockAndWrite(path string, data []byte, perm fs.FileMode) (err error) {
	lock := NewFileLock(path + lockSuffix)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() {
		unlockErr := lock.Unlock()
		if rmErr := os.Remove(lock.Path()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
			err = fmt.Errorf("failed to remove lock file %s: %w", lock.Path(), rmErr)
		}
		if err == nil {
			err = unlockErr
		}
	}()
	return AtomicWrite(path, data, perm)
}
