// Package report renders chart tables as a Markdown document and converts it
// to standalone HTML.
package report

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/settings"
	"github.com/harrison/fedviz/internal/table"
)

type section struct {
	heading string
	body    string
	table   *table.Table
}

// Report is an ordered list of text and table sections.
type Report struct {
	Title     string
	Generated time.Time
	// Precision is the number of decimals for table cells; negative means shortest.
	Precision int

	sections []section
	md       goldmark.Markdown
}

// New creates an empty report.
func New(title string, generated time.Time) *Report {
	return &Report{
		Title:     title,
		Generated: generated,
		Precision: 3,
		md:        goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// AddText appends a section of Markdown text.
func (r *Report) AddText(heading, body string) {
	r.sections = append(r.sections, section{heading: heading, body: body})
}

// AddTable appends a table section. The table's own name is not repeated
// when heading is set.
func (r *Report) AddTable(heading string, t *table.Table) {
	r.sections = append(r.sections, section{heading: heading, table: t})
}

// Markdown renders the whole report.
func (r *Report) Markdown() (string, error) {
	var sb strings.Builder
	sb.WriteString("# " + r.Title + "\n\n")
	if !r.Generated.IsZero() {
		sb.WriteString("_Generated " + r.Generated.Format(time.DateTime) + "_\n\n")
	}

	exp := table.MarkdownExporter{Precision: r.Precision}
	for _, s := range r.sections {
		if s.heading != "" {
			sb.WriteString("## " + s.heading + "\n\n")
		}
		if s.body != "" {
			sb.WriteString(strings.TrimRight(s.body, "\n") + "\n\n")
		}
		if s.table == nil {
			continue
		}
		t := s.table
		if s.heading != "" && t.Name != "" {
			clone := *t
			clone.Name = ""
			t = &clone
		}
		out, err := exp.Export(t)
		if err != nil {
			return "", fmt.Errorf("section %q: %w", s.heading, err)
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

// HTML converts the Markdown rendering to a standalone HTML page.
func (r *Report) HTML() ([]byte, error) {
	src, err := r.Markdown()
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	if err := r.md.Convert([]byte(src), &body); err != nil {
		return nil, fmt.Errorf("failed to convert report: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	buf.WriteString("<title>" + html.EscapeString(r.Title) + "</title>\n")
	buf.WriteString("<style>table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:2px 6px;text-align:right}</style>\n")
	buf.WriteString("</head>\n<body>\n")
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

// Write writes the Markdown form, or HTML when asHTML is set.
func (r *Report) Write(w io.Writer, asHTML bool) error {
	var data []byte
	if asHTML {
		b, err := r.HTML()
		if err != nil {
			return err
		}
		data = b
	} else {
		s, err := r.Markdown()
		if err != nil {
			return err
		}
		data = []byte(s)
	}
	_, err := w.Write(data)
	return err
}

// FileList describes each record on one bullet line.
func FileList(records []*record.Record) string {
	var sb strings.Builder
	for _, rec := range records {
		if rec.Len() == 0 {
			continue
		}
		first := rec.Events[0].Time
		last := rec.Events[len(rec.Events)-1].Time
		sb.WriteString(fmt.Sprintf("- **%s**: %d events, mode %s, %s to %s",
			escape(rec.Basename), rec.Len(), escape(rec.Mode),
			first.Format(time.DateTime), last.Format(time.DateTime)))
		if labels := rec.Groups().Labels(); len(labels) > 0 {
			sb.WriteString(", groups " + escape(strings.Join(labels, ", ")))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Summary builds the standard summary report: loaded files, the settings
// that shaped the numbers, and the statistics table.
func Summary(records []*record.Record, summary *table.Table, s *settings.Settings, generated time.Time) *Report {
	r := New("FED Summary", generated)
	r.AddText("Files", FileList(records))

	var cfg strings.Builder
	cfg.WriteString(fmt.Sprintf("- Lights on %02d:00, off %02d:00\n", int(s.LightsOn), int(s.LightsOff)))
	cfg.WriteString(fmt.Sprintf("- Meals: at least %d pellets, at most %d minutes apart\n", s.MealPelletMinimum, s.MealDuration))
	if dr := s.DateRange(); !dr.IsZero() {
		cfg.WriteString(fmt.Sprintf("- Date filter: %s to %s\n", fmtBound(dr.From), fmtBound(dr.To)))
	}
	r.AddText("Settings", cfg.String())

	r.AddTable("Statistics", summary)
	return r
}

func fmtBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format(time.DateTime)
}

var mdEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `_`, `\_`, `|`, `\|`, "`", "\\`")

func escape(s string) string {
	return mdEscaper.Replace(s)
}
