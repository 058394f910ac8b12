package filelock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlock(t *testing.T) {
	lock := NewFileLock(filepath.Join(t.TempDir(), "groups.csv.lock"))
	require.NoError(t, lock.Lock(context.Background()))
	require.NoError(t, lock.Unlock())
}

func TestTryLockHeldElsewhere(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.csv")
	held := For(path)
	require.NoError(t, held.Lock(context.Background()))
	defer held.Unlock()

	ok, err := For(path).TryLock()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.csv")
	held := For(path)
	require.NoError(t, held.Lock(context.Background()))
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := LockAndWriteContext(ctx, path, []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")

	require.NoError(t, AtomicWrite(path, []byte("first")))
	require.NoError(t, AtomicWrite(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteWith(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.csv")
	require.NoError(t, WriteWith(path, func(w io.Writer) error {
		_, err := fmt.Fprint(w, "A.csv\nctrl\n")
		return err
	}))
	data, err := ReadLocked(path)
	require.NoError(t, err)
	assert.Equal(t, "A.csv\nctrl\n", string(data))

	boom := errors.New("encode failed")
	err = WriteWith(path, func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "A.csv\nctrl\n", string(data))
}

func TestConcurrentLockedIncrements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	require.NoError(t, AtomicWrite(path, []byte("0")))

	const workers, iterations = 5, 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				lock := For(path)
				if err := lock.Lock(context.Background()); err != nil {
					t.Error(err)
					return
				}
				data, _ := os.ReadFile(path)
				n, _ := strconv.Atoi(string(data))
				_ = AtomicWrite(path, []byte(strconv.Itoa(n+1)))
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers*iterations), string(data))
}
