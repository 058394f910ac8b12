package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/filelock"
	"github.com/harrison/fedviz/internal/table"
)

// Output formats accepted by --format.
const (
	formatCSV      = "csv"
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatTable    = "table"
)

// writeTables renders tables to --output, or stdout when it is empty.
func (e *runEnv) writeTables(cmd *cobra.Command, tables ...*table.Table) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	if format == "" {
		format = formatCSV
		if output == "" && interactive(e.stdout) {
			format = formatTable
		}
	}
	switch format {
	case formatCSV, formatJSON, formatMarkdown, formatTable:
	default:
		return fmt.Errorf("unknown format %q, must be one of: csv, json, markdown, table", format)
	}

	if output != "" {
		if err := filelock.WriteWith(output, func(w io.Writer) error {
			return renderTables(w, format, false, tables)
		}); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		e.log.LogInfo(fmt.Sprintf("wrote %s", output))
		return nil
	}
	return renderTables(e.stdout, format, interactive(e.stdout) && !color.NoColor, tables)
}

func renderTables(w io.Writer, format string, colored bool, tables []*table.Table) error {
	if format == formatJSON {
		var data []byte
		var err error
		if len(tables) == 1 {
			data, err = json.MarshalIndent(tables[0], "", "  ")
		} else {
			data, err = json.MarshalIndent(tables, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		var err error
		switch format {
		case formatCSV:
			err = t.WriteCSV(w)
		case formatMarkdown:
			var s string
			s, err = table.MarkdownExporter{Precision: -1}.Export(t)
			if err == nil {
				_, err = io.WriteString(w, s)
			}
		default:
			err = writeAligned(w, t, colored)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// writeAligned prints a table in padded columns under a bold title when
// colored.
func writeAligned(w io.Writer, t *table.Table, colored bool) error {
	if t.Name != "" {
		title := t.Name
		if colored {
			title = color.New(color.FgCyan, color.Bold).Sprint(title)
		}
		fmt.Fprintln(w, title)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := append([]string{t.IndexName}, t.ColumnNames()...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	index := t.IndexStrings()
	for i := range index {
		cells := make([]string, 0, len(header))
		cells = append(cells, index[i])
		for _, col := range t.Columns {
			cells = append(cells, table.FormatFloat(col.Values[i]))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
