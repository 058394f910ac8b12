package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

// Exporter renders a table to text.
type Exporter interface {
	Export(t *Table) (string, error)
}

// CSVExporter writes the index as the first column and NaN as empty cells.
type CSVExporter struct{}

// Export converts the table to CSV.
func (CSVExporter) Export(t *Table) (string, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteCSV streams the table as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	if t == nil {
		return fmt.Errorf("table cannot be nil")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{t.IndexName}, t.ColumnNames()...)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	index := t.IndexStrings()
	row := make([]string, len(t.Columns)+1)
	for i := range index {
		row[0] = index[i]
		for j, c := range t.Columns {
			row[j+1] = FormatFloat(c.Values[i])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSONExporter writes the table document, optionally indented.
type JSONExporter struct {
	Pretty bool
}

// Export converts the table to JSON.
func (je JSONExporter) Export(t *Table) (string, error) {
	if t == nil {
		return "", fmt.Errorf("table cannot be nil")
	}
	var data []byte
	var err error
	if je.Pretty {
		data, err = json.MarshalIndent(t, "", "  ")
	} else {
		data, err = json.Marshal(t)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// Null is a float that marshals NaN and infinities as JSON null.
type Null float64

// MarshalJSON implements json.Marshaler.
func (n Null) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON reads null back as NaN.
func (n *Null) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Null(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Null(f)
	return nil
}

// Nulls converts values for JSON output.
func Nulls(values []float64) []Null {
	out := make([]Null, len(values))
	for i, v := range values {
		out[i] = Null(v)
	}
	return out
}

type jsonColumn struct {
	Name   string `json:"name"`
	Values []Null `json:"values"`
}

type jsonTable struct {
	Name      string       `json:"name,omitempty"`
	IndexName string       `json:"index_name"`
	IndexKind string       `json:"index_kind"`
	Index     any          `json:"index"`
	Columns   []jsonColumn `json:"columns"`
}

var kindNames = map[IndexKind]string{TimeIndex: "time", NumberIndex: "number", LabelIndex: "label"}

// MarshalJSON writes columns in order with NaN as null.
func (t *Table) MarshalJSON() ([]byte, error) {
	doc := jsonTable{
		Name:      t.Name,
		IndexName: t.IndexName,
		IndexKind: kindNames[t.Kind],
		Columns:   make([]jsonColumn, len(t.Columns)),
	}
	switch t.Kind {
	case TimeIndex:
		doc.Index = t.IndexStrings()
	case NumberIndex:
		doc.Index = Nulls(t.Numbers)
	default:
		doc.Index = t.Labels
	}
	for i, c := range t.Columns {
		doc.Columns[i] = jsonColumn{Name: c.Name, Values: Nulls(c.Values)}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON restores a table written by MarshalJSON.
func (t *Table) UnmarshalJSON(b []byte) error {
	var doc struct {
		Name      string          `json:"name"`
		IndexName string          `json:"index_name"`
		IndexKind string          `json:"index_kind"`
		Index     json.RawMessage `json:"index"`
		Columns   []jsonColumn    `json:"columns"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*t = Table{Name: doc.Name, IndexName: doc.IndexName}
	switch doc.IndexKind {
	case "time":
		var ss []string
		if err := json.Unmarshal(doc.Index, &ss); err != nil {
			return fmt.Errorf("time index: %w", err)
		}
		t.Kind = TimeIndex
		t.Times = make([]time.Time, len(ss))
		for i, s := range ss {
			ts, err := time.Parse(TimeLayout, s)
			if err != nil {
				return fmt.Errorf("time index: %w", err)
			}
			t.Times[i] = ts
		}
	case "number":
		var ns []Null
		if err := json.Unmarshal(doc.Index, &ns); err != nil {
			return fmt.Errorf("number index: %w", err)
		}
		t.Kind = NumberIndex
		t.Numbers = make([]float64, len(ns))
		for i, n := range ns {
			t.Numbers[i] = float64(n)
		}
	default:
		t.Kind = LabelIndex
		if err := json.Unmarshal(doc.Index, &t.Labels); err != nil {
			return fmt.Errorf("label index: %w", err)
		}
	}
	for _, c := range doc.Columns {
		values := make([]float64, len(c.Values))
		for i, v := range c.Values {
			values[i] = float64(v)
		}
		if err := t.AddColumn(c.Name, values); err != nil {
			return err
		}
	}
	return nil
}

// MarkdownExporter renders a pipe table; used for reports.
type MarkdownExporter struct {
	// Precision is the number of decimals; negative means shortest.
	Precision int
}

// Export converts the table to a Markdown table.
func (me MarkdownExporter) Export(t *Table) (string, error) {
	if t == nil {
		return "", fmt.Errorf("table cannot be nil")
	}
	var sb strings.Builder
	if t.Name != "" {
		sb.WriteString(fmt.Sprintf("### %s\n\n", t.Name))
	}
	header := append([]string{t.IndexName}, t.ColumnNames()...)
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sb.WriteString(strings.Repeat("|---", len(header)) + "|\n")
	index := t.IndexStrings()
	for i := range index {
		cells := make([]string, 0, len(header))
		cells = append(cells, index[i])
		for _, c := range t.Columns {
			cells = append(cells, me.format(c.Values[i]))
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

func (me MarkdownExporter) format(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	if me.Precision < 0 {
		return FormatFloat(v)
	}
	return fmt.Sprintf("%.*f", me.Precision, v)
}
