package record

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/harrison/fedviz/internal/fileutil"
)

// Logger is the subset of the console and file loggers used while loading.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
}

// LoadOptions controls a batch load.
type LoadOptions struct {
	// SkipDuplicates skips files whose basename matches an already loaded
	// record or an earlier file in the batch.
	SkipDuplicates bool
	// Loaded are records already in the session, consulted by SkipDuplicates.
	Loaded []*Record
	Logger Logger
	// Progress is called after each file with the number attempted so far.
	Progress func(done, total int)
}

// Result is the outcome for one path: exactly one of Record or Err is set
// unless the file was skipped as a duplicate.
type Result struct {
	Path    string
	Record  *Record
	Err     error
	Skipped bool
}

// Batch holds per-file results in input order.
type Batch struct {
	Results []Result
}

// Records returns the successfully loaded records.
func (b *Batch) Records() []*Record {
	out := make([]*Record, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Record != nil {
			out = append(out, r.Record)
		}
	}
	return out
}

// Warnings returns the missing-column warnings of loaded records.
func (b *Batch) Warnings() []*MissingColumnsWarning {
	out := make([]*MissingColumnsWarning, 0)
	for _, r := range b.Results {
		if r.Record == nil {
			continue
		}
		if w := r.Record.Warning(); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// Err returns a *BatchError listing every failed file, or nil.
func (b *Batch) Err() error {
	var failures []*LoadError
	for _, r := range b.Results {
		if r.Err == nil {
			continue
		}
		var le *LoadError
		if !errors.As(r.Err, &le) {
			le = &LoadError{Path: r.Path, Reason: "load", Err: r.Err}
		}
		failures = append(failures, le)
	}
	if len(failures) == 0 {
		return nil
	}
	return &BatchError{Failures: failures}
}

// LoadAll loads every path, continuing past failures. It stops early only
// when ctx is cancelled, returning the results gathered so far with ctx.Err().
func LoadAll(ctx context.Context, paths []string, opts LoadOptions) (*Batch, error) {
	batch := &Batch{Results: make([]Result, 0, len(paths))}
	seen := make(map[string]bool)
	for _, r := range opts.Loaded {
		seen[r.Basename] = true
	}

	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		base := filepath.Base(p)
		if opts.SkipDuplicates && seen[base] {
			if opts.Logger != nil {
				opts.Logger.LogDebug(fmt.Sprintf("skipping duplicate %s", base))
			}
			batch.Results = append(batch.Results, Result{Path: p, Skipped: true})
		} else {
			rec, err := Load(p)
			if err != nil {
				if opts.Logger != nil {
					opts.Logger.LogWarn(err.Error())
				}
				batch.Results = append(batch.Results, Result{Path: p, Err: err})
			} else {
				seen[base] = true
				if opts.Logger != nil {
					opts.Logger.LogDebug(fmt.Sprintf("loaded %s: %d events, mode %s", rec.Basename, rec.Len(), rec.Mode))
					if w := rec.Warning(); w != nil {
						opts.Logger.LogWarn(w.Error())
					}
				}
				batch.Results = append(batch.Results, Result{Path: p, Record: rec})
			}
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(paths))
		}
	}

	if opts.Logger != nil {
		opts.Logger.LogInfo(fmt.Sprintf("loaded %d of %d files", len(batch.Records()), len(paths)))
	}
	return batch, nil
}

// LoadDir scans dir for device files and loads them.
func LoadDir(ctx context.Context, dir string, recursive bool, opts LoadOptions) (*Batch, error) {
	scan, err := fileutil.ScanDeviceFiles(dir, recursive)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if opts.Logger != nil {
		for _, e := range scan.Errors {
			opts.Logger.LogWarn(e.Error())
		}
	}
	return LoadAll(ctx, scan.Files, opts)
}
