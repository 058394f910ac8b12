package record

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingTimestamp is wrapped by LoadError when no header resolves to the
// timestamp column.
var ErrMissingTimestamp = errors.New("missing timestamp column " + ColTimestamp)

// ErrUnsupportedFormat is wrapped by LoadError for files that are not .csv or .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// LoadError reports a device file that could not be turned into a Record.
// Batch loading collects these and keeps going.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying error
func (e *LoadError) Unwrap() error {
	return e.Err
}

// MissingColumnsWarning is informational: the file loaded, but charts that
// depend on the listed columns will produce empty series.
type MissingColumnsWarning struct {
	Path    string
	Columns []string
}

func (w *MissingColumnsWarning) Error() string {
	return fmt.Sprintf("%s is missing columns: %s", w.Path, strings.Join(w.Columns, ", "))
}

// BatchError aggregates every per-file failure of a batch load.
type BatchError struct {
	Failures []*LoadError
}

func (e *BatchError) Error() string {
	if len(e.Failures) == 1 {
		return e.Failures[0].Error()
	}
	paths := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		paths[i] = f.Path
	}
	return fmt.Sprintf("%d files failed to load: %s", len(e.Failures), strings.Join(paths, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}
