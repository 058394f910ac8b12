package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/fedviz/internal/record"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Empty reports whether there is nothing to show.
func (w Warning) Empty() bool {
	return w.Title == ""
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	if w.Empty() {
		return
	}

	var b strings.Builder
	b.WriteString("\x1b[33m")
	b.WriteString("Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected file:\n")
		} else {
			b.WriteString("Affected files:\n")
		}
		for i, file := range w.Files {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, file))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	b.WriteString("\x1b[0m")
	fmt.Fprint(out, b.String())
}

// WarnMissingColumns lists loaded files that lack optional columns.
// It returns an empty Warning when ws is empty.
func WarnMissingColumns(ws []*record.MissingColumnsWarning) Warning {
	if len(ws) == 0 {
		return Warning{}
	}
	files := make([]string, len(ws))
	for i, w := range ws {
		files[i] = fmt.Sprintf("%s (%s)", w.Path, strings.Join(w.Columns, ", "))
	}
	return Warning{
		Title:      "Files loaded with missing columns",
		Message:    "Charts that need these columns will be empty for these files.",
		Files:      files,
		Suggestion: "Check that the files were exported by current FED firmware",
	}
}

// WarnLoadFailures lists files that could not be loaded. err may be nil or
// any error; only *record.BatchError produces a warning.
func WarnLoadFailures(err error) Warning {
	be, ok := err.(*record.BatchError)
	if !ok || len(be.Failures) == 0 {
		return Warning{}
	}
	files := make([]string, len(be.Failures))
	for i, f := range be.Failures {
		if f.Err != nil {
			files[i] = fmt.Sprintf("%s: %s: %v", f.Path, f.Reason, f.Err)
		} else {
			files[i] = fmt.Sprintf("%s: %s", f.Path, f.Reason)
		}
	}
	return Warning{
		Title:      "Some files could not be loaded",
		Files:      files,
		Suggestion: "Only .csv and .xlsx files with a MM:DD:YYYY hh:mm:ss column can be loaded",
	}
}
