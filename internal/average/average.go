// Package average combines aggregated series of many records into per-group
// mean and error-band series.
package average

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/nanstat"
	"github.com/harrison/fedviz/internal/record"
)

// ErrorKind selects the band drawn around a group mean.
type ErrorKind int

const (
	// None draws no band.
	None ErrorKind = iota
	// SEM is the standard error of the mean.
	SEM
	// STD is the population standard deviation.
	STD
	// Raw shows the member series instead of a band.
	Raw
)

func (k ErrorKind) String() string {
	switch k {
	case SEM:
		return "SEM"
	case STD:
		return "STD"
	case Raw:
		return "raw data"
	default:
		return "None"
	}
}

// ParseErrorKind accepts "None", "SEM", "STD" and "raw data" (or "raw"),
// case-insensitively.
func ParseErrorKind(s string) (ErrorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "sem":
		return SEM, nil
	case "std":
		return STD, nil
	case "raw", "raw data":
		return Raw, nil
	}
	return None, fmt.Errorf("unknown error kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ErrorKind) UnmarshalText(b []byte) error {
	v, err := ParseErrorKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Config is an aggregation request plus the error band.
type Config struct {
	aggregate.Config
	Error ErrorKind
}

// DefaultConfig averages hourly pellets on calendar time with SEM.
func DefaultConfig() Config {
	return Config{Config: aggregate.DefaultConfig(), Error: SEM}
}

// NoOverlapError means calendar-time averaging found no window shared by
// every member record. Another alignment usually resolves it.
type NoOverlapError struct {
	LatestStart time.Time
	EarliestEnd time.Time
}

func (e *NoOverlapError) Error() string {
	return fmt.Sprintf("records do not overlap in time: latest start %s is after earliest end %s; try time-of-day or elapsed alignment",
		e.LatestStart.Format(time.DateTime), e.EarliestEnd.Format(time.DateTime))
}

var (
	// ErrNoGroups is returned when no group labels are requested.
	ErrNoGroups = errors.New("no groups to average")
	// ErrEmptyGroup is returned when a requested group has no records.
	ErrEmptyGroup = errors.New("group has no records")
)

// Window is a closed time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Group is one averaged group.
type Group struct {
	Label   string
	Members []string
	Mean    []float64
	// Error is nil unless the error kind is SEM or STD.
	Error []float64
}

// Result holds every member series on the common index, deduplicated by
// basename, followed by the group summaries.
type Result struct {
	Metric    aggregate.Metric
	Alignment aggregate.Alignment
	ErrorKind ErrorKind
	Index     []time.Time
	Origin    time.Time
	Files     []*aggregate.Series
	Groups    []Group
	// Window is the shared calendar window; zero for other alignments.
	Window Window
}

// Hours returns the index as hours since Origin.
func (r *Result) Hours() []float64 {
	s := aggregate.Series{Index: r.Index, Origin: r.Origin}
	return s.Hours()
}

// Average aggregates the members of each group with cfg and reduces them to
// a NaN-aware mean and error band per bin. Calendar alignment is restricted
// to the window every member covers and fails with *NoOverlapError when
// there is none.
func Average(ctx context.Context, records []*record.Record, groups []string, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, aggregate.ErrNoRecords
	}
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}

	members := make([][]*record.Record, len(groups))
	var files []*record.Record
	seen := make(map[string]bool)
	for i, label := range groups {
		members[i] = record.InGroup(records, label)
		if len(members[i]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyGroup, label)
		}
		for _, r := range members[i] {
			if !seen[r.ID] {
				seen[r.ID] = true
				files = append(files, r)
			}
		}
	}

	var window Window
	if cfg.Alignment == aggregate.Calendar {
		w, err := sharedWindow(files, cfg.DateFilter)
		if err != nil {
			return nil, err
		}
		window = w
	}

	series, err := aggregate.AggregateMany(ctx, files, cfg.Config)
	if err != nil {
		return nil, err
	}
	if cfg.Alignment == aggregate.Calendar {
		for i, s := range series {
			series[i] = clip(s, window, cfg.BinWidth)
		}
	}

	byID := make(map[string]*aggregate.Series, len(series))
	var shown []*aggregate.Series
	named := make(map[string]bool, len(series))
	for i, s := range series {
		byID[files[i].ID] = s
		if !named[s.Name] {
			named[s.Name] = true
			shown = append(shown, s)
		}
	}
	res := &Result{
		Metric:    cfg.Metric,
		Alignment: cfg.Alignment,
		ErrorKind: cfg.Error,
		Files:     shown,
		Window:    window,
	}
	if len(series) > 0 {
		res.Index = series[0].Index
		res.Origin = series[0].Origin
	}

	for i, label := range groups {
		g := Group{Label: label}
		rows := make([][]float64, 0, len(members[i]))
		for _, r := range members[i] {
			g.Members = append(g.Members, r.Basename)
			rows = append(rows, byID[r.ID].Values)
		}
		g.Mean = nanstat.Across(rows, nanstat.Mean)
		switch cfg.Error {
		case SEM:
			g.Error = nanstat.Across(rows, nanstat.SEM)
		case STD:
			g.Error = nanstat.Across(rows, nanstat.STD)
		}
		res.Groups = append(res.Groups, g)
	}
	return res, nil
}

// sharedWindow is [latest first event, earliest last event] over the
// records after the date filter.
func sharedWindow(records []*record.Record, filter aggregate.DateRange) (Window, error) {
	var w Window
	found := false
	for _, r := range records {
		events := r.Slice(filter.From, filter.To)
		if len(events) == 0 {
			continue
		}
		first, last := events[0].Time, events[len(events)-1].Time
		if !found || first.After(w.Start) {
			w.Start = first
		}
		if !found || last.Before(w.End) {
			w.End = last
		}
		found = true
	}
	if !found {
		return w, aggregate.ErrNoRecords
	}
	if w.End.Before(w.Start) {
		return w, &NoOverlapError{LatestStart: w.Start, EarliestEnd: w.End}
	}
	return w, nil
}

// clip keeps the bins that overlap the window.
func clip(s *aggregate.Series, w Window, width time.Duration) *aggregate.Series {
	lo, hi := len(s.Index), len(s.Index)
	for i, t := range s.Index {
		if t.Add(width).After(w.Start) {
			lo = i
			break
		}
	}
	for i := lo; i < len(s.Index); i++ {
		if s.Index[i].After(w.End) {
			hi = i
			break
		}
	}
	return &aggregate.Series{
		Name:   s.Name,
		Index:  s.Index[lo:hi],
		Values: s.Values[lo:hi],
		Origin: s.Origin,
	}
}
