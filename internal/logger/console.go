// Package logger provides logging implementations for fedviz runs.
//
// The console logger writes timestamped, level-filtered lines for humans; the
// file logger keeps a per-run log under the home directory with a latest.log
// symlink. Both satisfy record.Logger so batch loads can report through them,
// and both are safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/fedviz/internal/record"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs to a writer with [HH:MM:SS] timestamps.
// Color output is enabled when the writer is a terminal and NO_COLOR is unset.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a TTY that should receive colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel lowercases level and falls back to "info".
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, levelColor(level).Sprint(level), message)
		return
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

// LogLoadSummary logs the outcome of a batch load at INFO level.
// Format: "[HH:MM:SS] Loaded 3/4 files (1 skipped, 1 failed, 2 warnings) in 1.2s"
func (cl *ConsoleLogger) LogLoadSummary(batch *record.Batch, elapsed time.Duration) {
	if cl.writer == nil || batch == nil || !cl.shouldLog("info") {
		return
	}

	s := summarize(batch)
	msg := fmt.Sprintf("Loaded %d/%d files", s.loaded, s.total)
	var extras []string
	if s.skipped > 0 {
		extras = append(extras, fmt.Sprintf("%d skipped", s.skipped))
	}
	if s.failed > 0 {
		extras = append(extras, fmt.Sprintf("%d failed", s.failed))
	}
	if s.warnings > 0 {
		extras = append(extras, fmt.Sprintf("%d warnings", s.warnings))
	}
	if len(extras) > 0 {
		msg += " (" + strings.Join(extras, ", ") + ")"
	}
	msg += " in " + formatDuration(elapsed)

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput {
		c := color.New(color.FgGreen)
		if s.failed > 0 {
			c = color.New(color.FgYellow)
		}
		msg = c.Sprint(msg)
	}
	fmt.Fprintf(cl.writer, "[%s] %s\n", timestamp(), msg)
}

// LogProgress renders a one-line progress bar for a running load.
// Format: "[HH:MM:SS] Loading: [=====     ] 2/4 (50%)"
func (cl *ConsoleLogger) LogProgress(done, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	pb := NewProgressBar(total, 10, cl.colorOutput)
	pb.SetPrefix("Loading: ")
	pb.Update(done)

	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	fmt.Fprintf(cl.writer, "[%s] %s\n", timestamp(), pb.Render())
}

type loadStats struct {
	total, loaded, skipped, failed, warnings int
}

func summarize(batch *record.Batch) loadStats {
	s := loadStats{total: len(batch.Results)}
	for _, r := range batch.Results {
		switch {
		case r.Skipped:
			s.skipped++
		case r.Err != nil:
			s.failed++
		case r.Record != nil:
			s.loaded++
		}
	}
	s.warnings = len(batch.Warnings())
	return s
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "350ms", "5.0s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// Multi fans messages out to several loggers.
type Multi []record.Logger

func (m Multi) LogDebug(message string) {
	for _, l := range m {
		l.LogDebug(message)
	}
}

func (m Multi) LogInfo(message string) {
	for _, l := range m {
		l.LogInfo(message)
	}
}

func (m Multi) LogWarn(message string) {
	for _, l := range m {
		l.LogWarn(message)
	}
}
