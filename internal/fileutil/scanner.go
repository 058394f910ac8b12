package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DeviceFileExtensions are the tabular formats the record loader understands.
var DeviceFileExtensions = []string{".csv", ".xlsx"}

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Pattern is a regex pattern to match filenames (without extension)
	Pattern string
	// Extensions is a list of file extensions to include (e.g., ".csv", ".xlsx")
	Extensions []string
	// Recursive enables recursive directory scanning
	Recursive bool
	// ExcludeDirs is a list of directory names to exclude
	ExcludeDirs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = current dir only)
	MaxDepth int
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains the absolute paths of all matched files
	Files []string
	// Errors contains any errors encountered during scanning
	Errors []error
}

type matcher struct {
	pattern *regexp.Regexp
	exts    map[string]bool
	exclude map[string]bool
}

func newMatcher(opts ScanOptions) (*matcher, error) {
	m := &matcher{
		exts:    make(map[string]bool),
		exclude: make(map[string]bool),
	}
	if opts.Pattern != "" {
		re, err := regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		m.pattern = re
	}
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m.exts[strings.ToLower(ext)] = true
	}
	for _, d := range opts.ExcludeDirs {
		m.exclude[d] = true
	}
	return m, nil
}

func (m *matcher) skipDir(name string) bool {
	return m.exclude[name] || strings.HasPrefix(name, ".")
}

func (m *matcher) matchFile(name string) bool {
	// Spreadsheet editors leave "~$name.xlsx" lock files beside open workbooks.
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	ext := filepath.Ext(name)
	if len(m.exts) > 0 && !m.exts[strings.ToLower(ext)] {
		return false
	}
	if m.pattern != nil && !m.pattern.MatchString(strings.TrimSuffix(name, ext)) {
		return false
	}
	return true
}

// ScanDirectory scans a directory for files matching the provided options
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	m, err := newMatcher(opts)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == dir {
			return nil
		}

		if d.IsDir() {
			if m.skipDir(d.Name()) || !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 {
				rel, _ := filepath.Rel(dir, path)
				if strings.Count(rel, string(filepath.Separator))+1 >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !m.matchFile(d.Name()) {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, err))
			return nil
		}
		result.Files = append(result.Files, abs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(result.Files)
	return result, nil
}

// ScanDeviceFiles finds .csv and .xlsx files under dir.
func ScanDeviceFiles(dir string, recursive bool) (*ScanResult, error) {
	return ScanDirectory(dir, ScanOptions{
		Extensions: DeviceFileExtensions,
		Recursive:  recursive,
	})
}
