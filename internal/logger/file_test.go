package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger_CreatesRunLogAndSymlink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	fl, err := NewFileLoggerWithLevel(dir, "debug")
	require.NoError(t, err)

	fl.LogCommand([]string{"fedviz", "summary", "a.csv"})
	fl.LogDebug("debug line")
	fl.LogTrace("trace line")
	fl.LogLoadSummary(sampleBatch(t), time.Second)
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close(), "second close is a no-op")

	target, err := os.Readlink(filepath.Join(dir, "latest.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.Path()), target)

	data, err := os.ReadFile(fl.Path())
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "=== fedviz Run Log ===")
	assert.Contains(t, out, "command: fedviz summary a.csv")
	assert.Contains(t, out, "[DEBUG] debug line")
	assert.NotContains(t, out, "trace line")
	assert.Contains(t, out, "OK   a/FED001_010224_00.CSV: 2 events")
	assert.Contains(t, out, "SKIP a/FED001_010224_00.CSV (duplicate)")
	assert.Contains(t, out, "FAIL a/broken.csv")
	assert.Contains(t, out, "total 3, loaded 1, skipped 1, failed 1")
}

func TestFileLogger_WriteAfterCloseIsDropped(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fl.Close())
	assert.NotPanics(t, func() { fl.LogInfo("late") })
}
