// Package groups persists record group labels as a CSV table with one column
// per file and that file's labels listed down the column.
package groups

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harrison/fedviz/internal/filelock"
	"github.com/harrison/fedviz/internal/record"
)

// Table maps file identifiers to group labels, in column order.
type Table struct {
	Files  []string
	Labels map[string][]string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{Labels: make(map[string][]string)}
}

// Set replaces the labels of file, appending it if new.
func (t *Table) Set(file string, labels []string) {
	if _, ok := t.Labels[file]; !ok {
		t.Files = append(t.Files, file)
	}
	t.Labels[file] = append([]string(nil), labels...)
}

// FromRecords captures the labels of every record that has any. Files are
// keyed by absolute path when absolute is set, else by basename.
func FromRecords(records []*record.Record, absolute bool) *Table {
	t := NewTable()
	for _, r := range records {
		labels := r.Groups().Labels()
		if len(labels) == 0 {
			continue
		}
		t.Set(key(r, absolute), labels)
	}
	return t
}

func key(r *record.Record, absolute bool) string {
	if absolute {
		return r.Path
	}
	return r.Basename
}

// Apply replaces the membership of each record the table names and returns
// how many records matched. Without absolute, table columns are compared by
// basename so tables saved with paths still apply.
func (t *Table) Apply(records []*record.Record, absolute bool) int {
	lookup := make(map[string][]string, len(t.Files))
	for _, f := range t.Files {
		k := f
		if !absolute {
			k = filepath.Base(f)
		}
		lookup[k] = t.Labels[f]
	}
	matched := 0
	for _, r := range records {
		labels, ok := lookup[key(r, absolute)]
		if !ok {
			continue
		}
		r.SetGroups(record.NewMembership(labels...))
		matched++
	}
	return matched
}

// WriteCSV writes a leading row-number column, then one column per file,
// padding shorter label lists with blanks.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{""}, t.Files...)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	rows := 0
	for _, f := range t.Files {
		if n := len(t.Labels[f]); n > rows {
			rows = n
		}
	}
	for i := 0; i < rows; i++ {
		row := make([]string, len(t.Files)+1)
		row[0] = strconv.Itoa(i)
		for j, f := range t.Files {
			if labels := t.Labels[f]; i < len(labels) {
				row[j+1] = labels[i]
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a table written by WriteCSV. Blank cells are skipped.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse group table: %w", err)
	}
	t := NewTable()
	if len(all) == 0 {
		return t, nil
	}
	header := all[0]
	for _, f := range header[1:] {
		t.Set(f, nil)
	}
	for _, row := range all[1:] {
		for j := 1; j < len(row) && j < len(header); j++ {
			if v := strings.TrimSpace(row[j]); v != "" {
				t.Labels[header[j]] = append(t.Labels[header[j]], v)
			}
		}
	}
	return t, nil
}

// Load reads a group table from disk.
func Load(path string) (*Table, error) {
	data, err := filelock.ReadLocked(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read group table: %w", err)
	}
	return Read(strings.NewReader(string(data)))
}

// Save writes the table to disk under its file lock.
func Save(path string, t *Table) error {
	return filelock.WriteWith(path, t.WriteCSV)
}
