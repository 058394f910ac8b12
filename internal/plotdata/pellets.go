package plotdata

import (
	"context"
	"time"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// PelletCount is the cumulative pellet count of one record over time.
func PelletCount(rec *record.Record, dr aggregate.DateRange) (*table.Table, error) {
	evs := events(rec, dr)
	if len(evs) == 0 {
		return nil, ErrNoData
	}
	c := timeColumn{name: "Pellets", times: make([]time.Time, len(evs)), values: make([]float64, len(evs))}
	for i, e := range evs {
		c.times[i], c.values[i] = e.Time, e.Pellets
	}
	return joinTime("Pellets", IndexTime, []timeColumn{c}), nil
}

// PelletCounts overlays cumulative pellet counts of several records, on
// calendar time or, with elapsed, on hours since each record's first
// retained event.
func PelletCounts(records []*record.Record, dr aggregate.DateRange, elapsed bool) (*table.Table, error) {
	records = unique(records)
	if len(records) == 0 {
		return nil, aggregate.ErrNoRecords
	}
	if elapsed {
		cols := make([]numberColumn, 0, len(records))
		for _, r := range records {
			evs := events(r, dr)
			c := numberColumn{name: r.Basename, keys: elapsedHours(evs), values: make([]float64, len(evs))}
			for i, e := range evs {
				c.values[i] = e.Pellets
			}
			cols = append(cols, c)
		}
		return joinNumber("Pellets", IndexElapsedHours, cols), nil
	}

	cols := make([]timeColumn, 0, len(records))
	for _, r := range records {
		evs := events(r, dr)
		c := timeColumn{name: r.Basename, times: make([]time.Time, len(evs)), values: make([]float64, len(evs))}
		for i, e := range evs {
			c.times[i], c.values[i] = e.Time, e.Pellets
		}
		cols = append(cols, c)
	}
	return joinTime("Pellets", IndexTime, cols), nil
}

// PelletFrequency bins pellets of one record on calendar time.
func PelletFrequency(rec *record.Record, bin time.Duration, dr aggregate.DateRange) (*table.Table, error) {
	s, err := aggregate.Aggregate(rec, frequencyConfig(bin, dr, aggregate.Calendar))
	if err != nil {
		return nil, err
	}
	out := table.NewTimeTable("Pellet Frequency", IndexTime, s.Index)
	if err := out.AddColumn("Pellets", s.Values); err != nil {
		return nil, err
	}
	return out, nil
}

// PelletFrequencies bins pellets of several records, on the union of
// calendar bins or, with elapsed, on hours since each record's start.
func PelletFrequencies(ctx context.Context, records []*record.Record, bin time.Duration, dr aggregate.DateRange, elapsed bool) (*table.Table, error) {
	records = unique(records)
	alignment := aggregate.Calendar
	if elapsed {
		alignment = aggregate.Elapsed
	}
	series, err := aggregate.AggregateMany(ctx, records, frequencyConfig(bin, dr, alignment))
	if err != nil {
		return nil, err
	}
	return seriesTable("Pellet Frequency", series, elapsed), nil
}

func frequencyConfig(bin time.Duration, dr aggregate.DateRange, alignment aggregate.Alignment) aggregate.Config {
	cfg := aggregate.DefaultConfig()
	cfg.Metric = aggregate.Pellets
	cfg.BinWidth = bin
	cfg.Alignment = alignment
	cfg.DateFilter = dr
	return cfg
}

// seriesTable lays equally indexed series side by side.
func seriesTable(name string, series []*aggregate.Series, elapsed bool) *table.Table {
	var out *table.Table
	switch {
	case len(series) == 0:
		out = table.NewTimeTable(name, IndexTime, nil)
	case elapsed:
		out = table.NewNumberTable(name, IndexElapsedHours, series[0].Hours())
	default:
		out = table.NewTimeTable(name, IndexTime, series[0].Index)
	}
	for _, s := range series {
		out.MustAddColumn(s.Name, s.Values)
	}
	return out
}
