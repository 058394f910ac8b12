package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/fedviz/internal/record"
)

// FileLogger writes a timestamped run log (run-YYYYMMDD-HHMMSS.log) into a
// log directory and keeps latest.log pointing at it.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger under logDir at info level.
func NewFileLogger(logDir string) (*FileLogger, error) {
	return NewFileLoggerWithLevel(logDir, "info")
}

// NewFileLoggerWithLevel creates the log directory if needed, opens a new run
// log and repoints the latest.log symlink.
func NewFileLoggerWithLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	now := time.Now()
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", now.Format("20060102-150405")))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== fedviz Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", now.Format(time.RFC3339)))

	return fl, nil
}

// Path returns the run log file.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message.
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogCommand records the invoked command line.
func (fl *FileLogger) LogCommand(args []string) {
	fl.writeRunLog(fmt.Sprintf("[%s] command: %s\n", timestamp(), strings.Join(args, " ")))
}

// LogLoadSummary writes one line per file of a batch followed by totals.
func (fl *FileLogger) LogLoadSummary(batch *record.Batch, elapsed time.Duration) {
	if batch == nil {
		return
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] === Load ===\n", timestamp()))
	for _, r := range batch.Results {
		switch {
		case r.Skipped:
			b.WriteString(fmt.Sprintf("  SKIP %s (duplicate)\n", r.Path))
		case r.Err != nil:
			b.WriteString(fmt.Sprintf("  FAIL %s: %v\n", r.Path, r.Err))
		case r.Record != nil:
			rec := r.Record
			b.WriteString(fmt.Sprintf("  OK   %s: %d events, mode %s\n", r.Path, rec.Len(), rec.Mode))
			if w := rec.Warning(); w != nil {
				b.WriteString(fmt.Sprintf("       missing: %s\n", strings.Join(w.Columns, ", ")))
			}
		}
	}
	s := summarize(batch)
	b.WriteString(fmt.Sprintf("  total %d, loaded %d, skipped %d, failed %d (%s)\n\n",
		s.total, s.loaded, s.skipped, s.failed, formatDuration(elapsed)))
	fl.writeRunLog(b.String())
}

// Close flushes and closes the run log.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
