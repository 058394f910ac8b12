package table

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Table {
	t0 := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)
	tbl := NewTimeTable("Pellets", "Time", []time.Time{t0, t0.Add(time.Hour)})
	tbl.MustAddColumn("A.csv", []float64{2, math.NaN()})
	tbl.MustAddColumn("B.csv", []float64{0.5, 3})
	return tbl
}

func TestAddColumn(t *testing.T) {
	tbl := sample()
	assert.Error(t, tbl.AddColumn("C.csv", []float64{1}))
	assert.Error(t, tbl.AddColumn("A.csv", []float64{1, 2}))
	assert.Equal(t, []string{"A.csv", "B.csv"}, tbl.ColumnNames())

	v, ok := tbl.Column("B.csv")
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 3}, v)
	_, ok = tbl.Column("missing")
	assert.False(t, ok)
}

func TestCSVExporter(t *testing.T) {
	out, err := CSVExporter{}.Export(sample())
	require.NoError(t, err)
	assert.Equal(t, "Time,A.csv,B.csv\n2024-01-02 07:00:00,2,0.5\n2024-01-02 08:00:00,,3\n", out)
}

func TestJSON(t *testing.T) {
	out, err := JSONExporter{}.Export(sample())
	require.NoError(t, err)
	assert.Contains(t, out, `"values":[2,null]`)
	assert.Contains(t, out, `"index_kind":"time"`)

	var back Table
	require.NoError(t, json.Unmarshal([]byte(out), &back))
	assert.Equal(t, TimeIndex, back.Kind)
	assert.Equal(t, sample().Times, back.Times)
	a, _ := back.Column("A.csv")
	assert.Equal(t, 2.0, a[0])
	assert.True(t, math.IsNaN(a[1]))
}

func TestIndexKinds(t *testing.T) {
	num := NewNumberTable("", "Elapsed Hours", []float64{0, 0.5})
	num.MustAddColumn("x", []float64{1, 2})
	assert.Equal(t, []string{"0", "0.5"}, num.IndexStrings())

	lbl := NewLabelTable("Summary", "Statistic", []string{"Pellets"})
	lbl.MustAddColumn("A.csv", []float64{10})
	b, err := json.Marshal(lbl)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"index":["Pellets"]`)
}

func TestMarkdownExporter(t *testing.T) {
	out, err := MarkdownExporter{Precision: 1}.Export(sample())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "### Pellets", lines[0])
	assert.Equal(t, "| Time | A.csv | B.csv |", lines[2])
	assert.Equal(t, "|---|---|---|", lines[3])
	assert.Equal(t, "| 2024-01-02 08:00:00 |  | 3.0 |", lines[5])
}
