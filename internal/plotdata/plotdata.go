// Package plotdata computes the table behind every chart the renderer can
// draw. Each function takes loaded records plus explicit options and returns
// a table.Table of plain numeric columns; nothing here holds drawing state.
package plotdata

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
	"github.com/harrison/fedviz/internal/nanstat"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// Index names shared by the tables in this package.
const (
	IndexTime         = "Time"
	IndexElapsedHours = "Elapsed Hours"
	IndexHours        = "Hours"
)

// ErrNoData is returned when the selected records leave nothing to tabulate.
var ErrNoData = errors.New("no data to tabulate")

// events returns rec's events inside the date range.
func events(rec *record.Record, dr aggregate.DateRange) []record.Event {
	return rec.Slice(dr.From, dr.To)
}

// unique drops records whose basename was already seen.
func unique(records []*record.Record) []*record.Record {
	seen := make(map[string]bool, len(records))
	out := make([]*record.Record, 0, len(records))
	for _, r := range records {
		if seen[r.Basename] {
			continue
		}
		seen[r.Basename] = true
		out = append(out, r)
	}
	return out
}

// addFileColumn adds a per-file column unless a file with the same name
// already has one.
func addFileColumn(t *table.Table, name string, values []float64) {
	if _, ok := t.Column(name); ok {
		return
	}
	t.MustAddColumn(name, values)
}

// groupMembers resolves each label to its records, failing on an empty group.
func groupMembers(records []*record.Record, groups []string) ([][]*record.Record, error) {
	if len(groups) == 0 {
		return nil, average.ErrNoGroups
	}
	out := make([][]*record.Record, len(groups))
	for i, g := range groups {
		out[i] = record.InGroup(records, g)
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("%w: %s", average.ErrEmptyGroup, g)
		}
	}
	return out, nil
}

// errorColumn returns the band column for kind, or nil for None and Raw.
func errorColumn(values []float64, kind average.ErrorKind) []float64 {
	switch kind {
	case average.SEM:
		return []float64{nanstat.SEM(values)}
	case average.STD:
		return []float64{nanstat.STD(values)}
	}
	return nil
}

// timeColumn is one named series keyed by timestamp.
type timeColumn struct {
	name   string
	times  []time.Time
	values []float64
}

// joinTime outer-joins columns on the sorted union of their timestamps.
// When a column repeats a timestamp the last value wins.
func joinTime(name, indexName string, cols []timeColumn) *table.Table {
	keys := make(map[int64]time.Time)
	for _, c := range cols {
		for _, t := range c.times {
			keys[t.UnixNano()] = t
		}
	}
	index := make([]time.Time, 0, len(keys))
	for _, t := range keys {
		index = append(index, t)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })
	pos := make(map[int64]int, len(index))
	for i, t := range index {
		pos[t.UnixNano()] = i
	}

	out := table.NewTimeTable(name, indexName, index)
	for _, c := range cols {
		vals := nanstat.NaNs(len(index))
		for i, t := range c.times {
			vals[pos[t.UnixNano()]] = c.values[i]
		}
		out.MustAddColumn(c.name, vals)
	}
	return out
}

// numberColumn is one named series keyed by a numeric index.
type numberColumn struct {
	name   string
	keys   []float64
	values []float64
}

// joinNumber is joinTime for numeric indexes.
func joinNumber(name, indexName string, cols []numberColumn) *table.Table {
	set := make(map[float64]bool)
	for _, c := range cols {
		for _, k := range c.keys {
			set[k] = true
		}
	}
	index := make([]float64, 0, len(set))
	for k := range set {
		index = append(index, k)
	}
	sort.Float64s(index)
	pos := make(map[float64]int, len(index))
	for i, k := range index {
		pos[k] = i
	}

	out := table.NewNumberTable(name, indexName, index)
	for _, c := range cols {
		vals := nanstat.NaNs(len(index))
		for i, k := range c.keys {
			vals[pos[k]] = c.values[i]
		}
		out.MustAddColumn(c.name, vals)
	}
	return out
}

// dropEmptyRows removes rows whose every column is NaN.
func dropEmptyRows(t *table.Table) *table.Table {
	keep := make([]int, 0, t.Rows())
	for i := 0; i < t.Rows(); i++ {
		for _, c := range t.Columns {
			if !math.IsNaN(c.Values[i]) {
				keep = append(keep, i)
				break
			}
		}
	}
	if len(keep) == t.Rows() {
		return t
	}

	var out *table.Table
	switch t.Kind {
	case table.TimeIndex:
		idx := make([]time.Time, len(keep))
		for j, i := range keep {
			idx[j] = t.Times[i]
		}
		out = table.NewTimeTable(t.Name, t.IndexName, idx)
	case table.NumberIndex:
		idx := make([]float64, len(keep))
		for j, i := range keep {
			idx[j] = t.Numbers[i]
		}
		out = table.NewNumberTable(t.Name, t.IndexName, idx)
	default:
		idx := make([]string, len(keep))
		for j, i := range keep {
			idx[j] = t.Labels[i]
		}
		out = table.NewLabelTable(t.Name, t.IndexName, idx)
	}
	for _, c := range t.Columns {
		vals := make([]float64, len(keep))
		for j, i := range keep {
			vals[j] = c.Values[i]
		}
		out.MustAddColumn(c.Name, vals)
	}
	return out
}

// elapsedHours converts event times to hours since the first event.
func elapsedHours(evs []record.Event) []float64 {
	out := make([]float64, len(evs))
	if len(evs) == 0 {
		return out
	}
	t0 := evs[0].Time
	for i, e := range evs {
		out[i] = e.Time.Sub(t0).Hours()
	}
	return out
}
