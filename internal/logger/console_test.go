package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/fedviz/internal/record"
)

var _ record.Logger = (*ConsoleLogger)(nil)
var _ record.Logger = (*FileLogger)(nil)
var _ record.Logger = Multi(nil)
var _ record.Logger = (*Zap)(nil)

func sampleBatch(t *testing.T) *record.Batch {
	t.Helper()
	rec, err := record.LoadReader("FED001_010224_00.CSV", strings.NewReader(
		"MM:DD:YYYY hh:mm:ss,Pellet_Count\n01/02/2024 07:00:00,0\n01/02/2024 07:10:00,1\n"))
	require.NoError(t, err)
	return &record.Batch{Results: []record.Result{
		{Path: "a/FED001_010224_00.CSV", Record: rec},
		{Path: "a/FED001_010224_00.CSV", Skipped: true},
		{Path: "a/broken.csv", Err: &record.LoadError{Path: "a/broken.csv", Reason: "parse", Err: errors.New("bad row")}},
	}}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		wantLine []string
		dropped  []string
	}{
		{level: "debug", wantLine: []string{"[DEBUG] d", "[INFO] i", "[WARN] w", "[ERROR] e"}},
		{level: "info", wantLine: []string{"[INFO] i", "[WARN] w"}, dropped: []string{"[DEBUG]"}},
		{level: "ERROR", wantLine: []string{"[ERROR] e"}, dropped: []string{"[INFO]", "[WARN]"}},
		{level: "bogus", wantLine: []string{"[INFO] i"}, dropped: []string{"[TRACE]", "[DEBUG]"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			cl := NewConsoleLogger(&buf, tt.level)
			cl.LogTrace("t")
			cl.LogDebug("d")
			cl.LogInfo("i")
			cl.LogWarn("w")
			cl.LogError("e")

			out := buf.String()
			for _, s := range tt.wantLine {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.dropped {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestConsoleLogger_NilWriter(t *testing.T) {
	cl := NewConsoleLogger(nil, "debug")
	assert.NotPanics(t, func() {
		cl.LogInfo("x")
		cl.LogProgress(1, 2)
		cl.LogLoadSummary(&record.Batch{}, time.Second)
	})
}

func TestConsoleLogger_BufferIsNotTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
	assert.False(t, isTerminal(nil))
}

func TestConsoleLogger_LogLoadSummary(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	cl.LogLoadSummary(sampleBatch(t), 1500*time.Millisecond)

	assert.Contains(t, buf.String(), "Loaded 1/3 files (1 skipped, 1 failed) in 1.5s")
}

func TestConsoleLogger_LogProgress(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	cl.LogProgress(2, 4)

	assert.Contains(t, buf.String(), "Loading: [=====     ] 2/4 (50%)")
}

func TestMulti(t *testing.T) {
	var a, b bytes.Buffer
	m := Multi{NewConsoleLogger(&a, "debug"), NewConsoleLogger(&b, "warn")}
	m.LogDebug("dbg")
	m.LogWarn("careful")

	assert.Contains(t, a.String(), "dbg")
	assert.Contains(t, a.String(), "careful")
	assert.NotContains(t, b.String(), "dbg")
	assert.Contains(t, b.String(), "careful")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{350 * time.Millisecond, "350ms"},
		{5 * time.Second, "5.0s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{3 * time.Hour, "3h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}
