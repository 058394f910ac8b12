// Package filelock serialises access to fedviz's shared data files (settings
// tables, group-label tables, concatenated logs) between the CLI and the
// service, and replaces files atomically so readers never see partial data.
package filelock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// RetryDelay is how often a blocked lock attempt polls.
const RetryDelay = 25 * time.Millisecond

// FileLock is an advisory lock held on a sidecar ".lock" file.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a lock on path itself; use For to lock a data file.
func NewFileLock(path string) *FileLock {
	return &FileLock{flock: flock.New(path), path: path}
}

// For returns the lock guarding the data file at path.
func For(path string) *FileLock {
	return NewFileLock(path + ".lock")
}

// Lock blocks until the exclusive lock is held or ctx is done.
func (fl *FileLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(fl.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := fl.flock.TryLockContext(ctx, RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fl.path, err)
	}
	if !ok {
		return fmt.Errorf("failed to acquire lock on %s", fl.path)
	}
	return nil
}

// RLock blocks until a shared lock is held or ctx is done.
func (fl *FileLock) RLock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(fl.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := fl.flock.TryRLockContext(ctx, RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire shared lock on %s: %w", fl.path, err)
	}
	if !ok {
		return fmt.Errorf("failed to acquire shared lock on %s", fl.path)
	}
	return nil
}

// TryLock takes the exclusive lock if it is free.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", fl.path, err)
	}
	return acquired, nil
}

// Unlock releases whichever lock is held.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}

// AtomicWrite replaces path with data through a temp file in the same
// directory and a rename. On failure the previous file is left intact.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	tempFile = nil
	return nil
}

// LockAndWrite atomically replaces path while holding its exclusive lock.
func LockAndWrite(path string, data []byte) error {
	return LockAndWriteContext(context.Background(), path, data)
}

// LockAndWriteContext is LockAndWrite with a bound on the wait for the lock.
func LockAndWriteContext(ctx context.Context, path string, data []byte) error {
	lock := For(path)
	if err := lock.Lock(ctx); err != nil {
		return err
	}
	defer lock.Unlock()
	return AtomicWrite(path, data)
}

// WriteWith renders content with encode and writes it as LockAndWrite does.
// Nothing is written if encode fails.
func WriteWith(path string, encode func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return err
	}
	return LockAndWrite(path, buf.Bytes())
}

// ReadLocked reads path while holding its shared lock.
func ReadLocked(path string) ([]byte, error) {
	lock := For(path)
	if err := lock.RLock(context.Background()); err != nil {
		return nil, err
	}
	defer lock.Unlock()
	return os.ReadFile(path)
}
