// Package aggregate resamples records into fixed-width time bins under one of
// three alignment policies and reduces each bin to a metric value.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/harrison/fedviz/internal/nanstat"
	"github.com/harrison/fedviz/internal/record"
)

// Epoch is the origin of calendar bins and of the synthetic axes used by the
// time-of-day and elapsed policies.
var Epoch = time.Unix(0, 0).UTC()

// DateRange restricts aggregation to From <= t <= To. Zero bounds are open.
type DateRange struct {
	From time.Time `yaml:"from" json:"from"`
	To   time.Time `yaml:"to" json:"to"`
}

// IsZero reports whether the range filters nothing.
func (d DateRange) IsZero() bool {
	return d.From.IsZero() && d.To.IsZero()
}

// Contains reports whether t falls inside the range.
func (d DateRange) Contains(t time.Time) bool {
	if !d.From.IsZero() && t.Before(d.From) {
		return false
	}
	if !d.To.IsZero() && t.After(d.To) {
		return false
	}
	return true
}

// Config is the aggregation request.
type Config struct {
	Metric    Metric
	BinWidth  time.Duration
	Alignment Alignment
	// AlignHour is the hour of day (0-23) anchoring TimeOfDay bins.
	AlignHour int
	// AlignDays is the length of the TimeOfDay axis.
	AlignDays int
	// RetrievalCutoff drops retrieval times >= the cutoff (seconds) before
	// averaging. Zero disables it.
	RetrievalCutoff float64
	DateFilter      DateRange
}

// DefaultConfig returns hourly pellet sums on calendar time.
func DefaultConfig() Config {
	return Config{
		Metric:    Pellets,
		BinWidth:  time.Hour,
		Alignment: Calendar,
		AlignHour: 7,
		AlignDays: 3,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.BinWidth <= 0 {
		return fmt.Errorf("bin width must be positive, got %s", c.BinWidth)
	}
	if c.Alignment == TimeOfDay {
		if c.AlignHour < 0 || c.AlignHour > 23 {
			return fmt.Errorf("align hour must be 0-23, got %d", c.AlignHour)
		}
		if c.AlignDays < 1 {
			return fmt.Errorf("align days must be at least 1, got %d", c.AlignDays)
		}
		if (24*time.Hour)%c.BinWidth != 0 {
			return fmt.Errorf("bin width %s does not divide a day", c.BinWidth)
		}
	}
	if c.RetrievalCutoff < 0 {
		return fmt.Errorf("retrieval cutoff must not be negative")
	}
	return nil
}

// Series is a binned metric. Index holds bin start times; for aligned
// policies they lie on a synthetic axis starting at Origin.
type Series struct {
	Name   string
	Index  []time.Time
	Values []float64
	Origin time.Time
}

// Len returns the number of bins.
func (s *Series) Len() int {
	return len(s.Index)
}

// Hours returns each bin's offset from Origin in hours.
func (s *Series) Hours() []float64 {
	out := make([]float64, len(s.Index))
	for i, t := range s.Index {
		out[i] = t.Sub(s.Origin).Hours()
	}
	return out
}

// At returns the value at bin start t, or NaN.
func (s *Series) At(t time.Time) float64 {
	for i, x := range s.Index {
		if x.Equal(t) {
			return s.Values[i]
		}
	}
	return math.NaN()
}

// Reindex conforms the series to index; bins it lacks become NaN.
func (s *Series) Reindex(index []time.Time) *Series {
	pos := make(map[int64]int, len(s.Index))
	for i, t := range s.Index {
		pos[t.UnixNano()] = i
	}
	values := nanstat.NaNs(len(index))
	for i, t := range index {
		if j, ok := pos[t.UnixNano()]; ok {
			values[i] = s.Values[j]
		}
	}
	return &Series{Name: s.Name, Index: append([]time.Time(nil), index...), Values: values, Origin: s.Origin}
}

// ErrNoRecords is returned when asked to aggregate nothing.
var ErrNoRecords = errors.New("no records to aggregate")

// Aggregate bins one record. The date filter is applied first; under Elapsed
// alignment time is re-zeroed to the first retained event. Records missing a
// column the metric needs yield an all-NaN series.
func Aggregate(rec *record.Record, cfg Config) (*Series, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	events := filterEvents(rec.Events, cfg.DateFilter)
	s := &Series{Name: rec.Basename, Index: []time.Time{}, Values: []float64{}}
	if len(events) == 0 {
		if cfg.Alignment == TimeOfDay {
			grid := timeOfDayGrid(cfg)
			s.Origin = grid[0]
			return s.Reindex(grid), nil
		}
		return s, nil
	}

	origin := Epoch
	key := func(e record.Event) time.Time { return e.Time }
	switch cfg.Alignment {
	case TimeOfDay:
		origin = Epoch.Add(time.Duration(cfg.AlignHour) * time.Hour)
	case Elapsed:
		t0 := events[0].Time
		key = func(e record.Event) time.Time { return Epoch.Add(e.Time.Sub(t0)) }
	}

	first := binStart(key(events[0]), origin, cfg.BinWidth)
	last := binStart(key(events[len(events)-1]), origin, cfg.BinWidth)
	n := int(last.Sub(first)/cfg.BinWidth) + 1

	bins := make([][]record.Event, n)
	lo := 0
	for b := 0; b < n; b++ {
		end := first.Add(time.Duration(b+1) * cfg.BinWidth)
		hi := lo
		for hi < len(events) && key(events[hi]).Before(end) {
			hi++
		}
		bins[b] = events[lo:hi]
		lo = hi
	}

	s.Index = make([]time.Time, n)
	for b := range s.Index {
		s.Index[b] = first.Add(time.Duration(b) * cfg.BinWidth)
	}
	s.Values = reduceBins(bins, rec, cfg)

	switch cfg.Alignment {
	case TimeOfDay:
		return alignTimeOfDay(s, cfg), nil
	case Elapsed:
		s.Origin = Epoch
	}
	return s, nil
}

func filterEvents(events []record.Event, r DateRange) []record.Event {
	if r.IsZero() {
		return events
	}
	out := make([]record.Event, 0, len(events))
	for _, e := range events {
		if r.Contains(e.Time) {
			out = append(out, e)
		}
	}
	return out
}

// binStart floors t onto the grid origin + k*width.
func binStart(t, origin time.Time, width time.Duration) time.Time {
	d := t.Sub(origin)
	k := d / width
	if d%width < 0 {
		k--
	}
	return origin.Add(k * width)
}

// timeOfDayGrid is the shared axis: AlignDays days of bins starting at
// AlignHour on the epoch date, endpoints inclusive.
func timeOfDayGrid(cfg Config) []time.Time {
	start := Epoch.Add(time.Duration(cfg.AlignHour) * time.Hour)
	end := start.Add(time.Duration(cfg.AlignDays) * 24 * time.Hour)
	grid := make([]time.Time, 0, int(end.Sub(start)/cfg.BinWidth)+1)
	for t := start; !t.After(end); t = t.Add(cfg.BinWidth) {
		grid = append(grid, t)
	}
	return grid
}

// alignTimeOfDay moves the series' first day onto the epoch date, keeping
// every bin's clock time, then conforms it to the shared grid. Bins before
// the anchor hour on the first day fall off the grid.
func alignTimeOfDay(s *Series, cfg Config) *Series {
	grid := timeOfDayGrid(cfg)
	first := s.Index[0]
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, first.Location())
	shift := day.Sub(Epoch)
	shifted := &Series{Name: s.Name, Index: make([]time.Time, len(s.Index)), Values: s.Values}
	for i, t := range s.Index {
		shifted.Index[i] = t.Add(-shift)
	}
	out := shifted.Reindex(grid)
	out.Origin = grid[0]
	return out
}

// AggregateMany bins several records and conforms them to one index:
// Calendar uses the union of bins, TimeOfDay the shared grid, and Elapsed
// the longest elapsed index among the records.
func AggregateMany(ctx context.Context, records []*record.Record, cfg Config) ([]*Series, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	out := make([]*Series, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := Aggregate(rec, cfg)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", rec.Basename, err)
		}
		out = append(out, s)
	}

	var index []time.Time
	switch cfg.Alignment {
	case TimeOfDay:
		return out, nil
	case Elapsed:
		for _, s := range out {
			if len(s.Index) > len(index) {
				index = s.Index
			}
		}
	default:
		index = UnionIndex(out, cfg.BinWidth)
	}
	for i, s := range out {
		origin := s.Origin
		out[i] = s.Reindex(index)
		out[i].Origin = origin
	}
	return out, nil
}

// UnionIndex spans the bin starts of several series on a grid of width,
// from the earliest to the latest bin.
func UnionIndex(series []*Series, width time.Duration) []time.Time {
	var minT, maxT time.Time
	found := false
	for _, s := range series {
		for _, t := range s.Index {
			if !found || t.Before(minT) {
				minT = t
			}
			if !found || t.After(maxT) {
				maxT = t
			}
			found = true
		}
	}
	if !found {
		return []time.Time{}
	}
	out := make([]time.Time, 0, int(maxT.Sub(minT)/width)+1)
	for t := minT; !t.After(maxT); t = t.Add(width) {
		out = append(out, t)
	}
	return out
}
