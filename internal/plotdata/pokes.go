package plotdata

import (
	"errors"
	"fmt"
	"time"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// Poke column names.
const (
	ColCorrectPokes   = "Correct Pokes"
	ColIncorrectPokes = "Incorrect Pokes"
	ColLeftPokes      = "Left Pokes"
	ColRightPokes     = "Right Pokes"
)

// PokeOptions selects the poke series and their presentation.
type PokeOptions struct {
	// Cumulative plots running totals; otherwise counts per Bin.
	Cumulative bool
	Bin        time.Duration
	Correct    bool
	Incorrect  bool
	Left       bool
	Right      bool
	DateFilter aggregate.DateRange
}

// ErrNoSeries is returned when no poke series is selected.
var ErrNoSeries = errors.New("no poke series selected")

// Pokes tabulates the selected poke series of one record. Cumulative
// correct and incorrect counts continue from the pokes logged before the
// date filter starts.
func Pokes(rec *record.Record, opts PokeOptions) (*table.Table, error) {
	if !(opts.Correct || opts.Incorrect || opts.Left || opts.Right) {
		return nil, ErrNoSeries
	}
	if opts.Cumulative {
		return cumulativePokes(rec, opts), nil
	}

	type series struct {
		on     bool
		name   string
		metric aggregate.Metric
	}
	var out *table.Table
	for _, s := range []series{
		{opts.Correct, ColCorrectPokes, aggregate.CorrectPokes},
		{opts.Incorrect, ColIncorrectPokes, aggregate.Errors},
		{opts.Left, ColLeftPokes, aggregate.LeftPokes},
		{opts.Right, ColRightPokes, aggregate.RightPokes},
	} {
		if !s.on {
			continue
		}
		cfg := aggregate.DefaultConfig()
		cfg.Metric = s.metric
		cfg.BinWidth = opts.Bin
		cfg.DateFilter = opts.DateFilter
		agg, err := aggregate.Aggregate(rec, cfg)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = table.NewTimeTable("Pokes", IndexTime, agg.Index)
		}
		out.MustAddColumn(s.name, agg.Values)
	}
	return out, nil
}

func cumulativePokes(rec *record.Record, opts PokeOptions) *table.Table {
	var offCorrect, offIncorrect float64
	if !opts.DateFilter.From.IsZero() {
		for _, e := range rec.Events {
			if !e.Time.Before(opts.DateFilter.From) {
				break
			}
			switch e.Correct {
			case record.Correct:
				offCorrect++
			case record.Incorrect:
				offIncorrect++
			}
		}
	}

	evs := events(rec, opts.DateFilter)
	running := func(name string, want record.Correctness, offset float64) timeColumn {
		c := timeColumn{name: name}
		n := offset
		for _, e := range evs {
			if e.Correct != want {
				continue
			}
			n++
			c.times = append(c.times, e.Time)
			c.values = append(c.values, n)
		}
		return c
	}
	counter := func(name string, col string, get func(record.Event) float64) timeColumn {
		c := timeColumn{name: name}
		if !rec.HasColumn(col) {
			return c
		}
		for _, e := range evs {
			if e.Type != record.EventPoke {
				continue
			}
			c.times = append(c.times, e.Time)
			c.values = append(c.values, get(e))
		}
		return c
	}

	var cols []timeColumn
	if opts.Correct {
		cols = append(cols, running(ColCorrectPokes, record.Correct, offCorrect))
	}
	if opts.Incorrect {
		cols = append(cols, running(ColIncorrectPokes, record.Incorrect, offIncorrect))
	}
	if opts.Left {
		cols = append(cols, counter(ColLeftPokes, record.ColLeftPokes, func(e record.Event) float64 { return e.LeftPokes }))
	}
	if opts.Right {
		cols = append(cols, counter(ColRightPokes, record.ColRightPokes, func(e record.Event) float64 { return e.RightPokes }))
	}
	return joinTime("Pokes", IndexTime, cols)
}

// PokeBias bins one record's poke bias, either correct pokes (%) or left
// pokes (%).
func PokeBias(rec *record.Record, metric aggregate.Metric, bin time.Duration, dr aggregate.DateRange) (*table.Table, error) {
	var label string
	switch metric {
	case aggregate.CorrectPercent:
		label = "Poke Bias (correct %)"
	case aggregate.LeftBias:
		label = "Poke Bias (left %)"
	default:
		return nil, fmt.Errorf("poke bias needs correct or left percentage, got %s", metric)
	}
	cfg := aggregate.DefaultConfig()
	cfg.Metric = metric
	cfg.BinWidth = bin
	cfg.DateFilter = dr
	s, err := aggregate.Aggregate(rec, cfg)
	if err != nil {
		return nil, err
	}
	out := table.NewTimeTable("Poke Bias", IndexTime, s.Index)
	out.MustAddColumn(label, s.Values)
	return out, nil
}
