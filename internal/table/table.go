// Package table is the plain-data seam between fedviz computations and any
// renderer: every chart function produces a Table of numeric columns over a
// time, numeric, or categorical index.
package table

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// TimeLayout formats time indexes in every export.
const TimeLayout = "2006-01-02 15:04:05"

// IndexKind says which index slice of a Table is populated.
type IndexKind int

const (
	// TimeIndex rows are keyed by Times.
	TimeIndex IndexKind = iota
	// NumberIndex rows are keyed by Numbers (elapsed hours, histogram bins).
	NumberIndex
	// LabelIndex rows are keyed by Labels (files, groups, statistics).
	LabelIndex
)

// Column is a named series of values, NaN where missing.
type Column struct {
	Name   string
	Values []float64
}

// Table is an ordered set of equal-length columns over one index.
type Table struct {
	Name      string
	IndexName string
	Kind      IndexKind
	Times     []time.Time
	Numbers   []float64
	Labels    []string
	Columns   []Column
}

// NewTimeTable creates an empty table indexed by times.
func NewTimeTable(name, indexName string, index []time.Time) *Table {
	return &Table{Name: name, IndexName: indexName, Kind: TimeIndex, Times: append([]time.Time(nil), index...)}
}

// NewNumberTable creates an empty table indexed by numbers.
func NewNumberTable(name, indexName string, index []float64) *Table {
	return &Table{Name: name, IndexName: indexName, Kind: NumberIndex, Numbers: append([]float64(nil), index...)}
}

// NewLabelTable creates an empty table indexed by labels.
func NewLabelTable(name, indexName string, index []string) *Table {
	return &Table{Name: name, IndexName: indexName, Kind: LabelIndex, Labels: append([]string(nil), index...)}
}

// Rows returns the index length.
func (t *Table) Rows() int {
	switch t.Kind {
	case TimeIndex:
		return len(t.Times)
	case NumberIndex:
		return len(t.Numbers)
	default:
		return len(t.Labels)
	}
}

// AddColumn appends a column. Its length must match the index and its name
// must be new.
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) != t.Rows() {
		return fmt.Errorf("column %q has %d values, index has %d", name, len(values), t.Rows())
	}
	if _, ok := t.Column(name); ok {
		return fmt.Errorf("duplicate column %q", name)
	}
	t.Columns = append(t.Columns, Column{Name: name, Values: append([]float64(nil), values...)})
	return nil
}

// MustAddColumn is AddColumn for callers that built values from the index.
func (t *Table) MustAddColumn(name string, values []float64) {
	if err := t.AddColumn(name, values); err != nil {
		panic(err)
	}
}

// Column looks a column up by name.
func (t *Table) Column(name string) ([]float64, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

// ColumnNames lists the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// IndexStrings renders the index for text exports.
func (t *Table) IndexStrings() []string {
	out := make([]string, t.Rows())
	for i := range out {
		switch t.Kind {
		case TimeIndex:
			out[i] = t.Times[i].Format(TimeLayout)
		case NumberIndex:
			out[i] = FormatFloat(t.Numbers[i])
		default:
			out[i] = t.Labels[i]
		}
	}
	return out
}

// FormatFloat renders v compactly; NaN renders empty.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
