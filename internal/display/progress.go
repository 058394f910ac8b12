package display

import (
	"fmt"
	"io"
	"path/filepath"
)

// ProgressIndicator prints one cyan line per loaded file.
type ProgressIndicator struct {
	writer     io.Writer
	totalFiles int
	current    int
}

// NewProgressIndicator creates a new progress indicator
func NewProgressIndicator(w io.Writer, total int) *ProgressIndicator {
	return &ProgressIndicator{writer: w, totalFiles: total}
}

// Start displays the header message
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "Loading %d files:\n", p.totalFiles)
}

// Step displays progress for current item: [N/Total] filename
func (p *ProgressIndicator) Step(filename string) {
	p.current++
	fmt.Fprintf(p.writer, "\x1b[36m  [%d/%d] %s\x1b[0m\n", p.current, p.totalFiles, filepath.Base(filename))
}

// Complete displays how many files actually loaded.
func (p *ProgressIndicator) Complete(loaded int) {
	fmt.Fprintf(p.writer, "\x1b[32m✓\x1b[0m Loaded %d of %d files\n", loaded, p.totalFiles)
}
