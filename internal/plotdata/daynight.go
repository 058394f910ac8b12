package plotdata

import (
	"math"
	"time"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
	"github.com/harrison/fedviz/internal/daynight"
	"github.com/harrison/fedviz/internal/nanstat"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// CircadianConfig parameterises the day/night and chronogram tables.
type CircadianConfig struct {
	Metric          aggregate.Metric
	Schedule        daynight.Schedule
	Error           average.ErrorKind
	RetrievalCutoff float64
	DateFilter      aggregate.DateRange
}

// periodValues reduces each interval's events to one metric value. Events
// fall in [start, end); an interval running to the last sample also keeps
// that sample when it belongs to the period.
func periodValues(evs []record.Event, spans []daynight.Interval, in func(time.Time) bool, cfg CircadianConfig) []float64 {
	out := make([]float64, 0, len(spans))
	if len(evs) == 0 {
		return out
	}
	last := evs[len(evs)-1].Time
	for _, sp := range spans {
		slice := make([]record.Event, 0)
		for _, e := range evs {
			if e.Time.Before(sp.Start) {
				continue
			}
			if e.Time.Before(sp.End) || (e.Time.Equal(last) && sp.End.Equal(last) && in(last)) {
				slice = append(slice, e)
			}
		}
		out = append(out, aggregate.Reduce(slice, cfg.Metric, cfg.RetrievalCutoff))
	}
	return out
}

// perPeriod divides a total by a fractional period count, NaN when no
// period was observed.
func perPeriod(total, periods float64) float64 {
	if periods <= 0 {
		return math.NaN()
	}
	return total / periods
}

type dayNightValues struct {
	dayMean, nightMean float64
	dayRate, nightRate float64
}

func dayNightOf(rec *record.Record, cfg CircadianConfig) dayNightValues {
	evs := events(rec, cfg.DateFilter)
	v := dayNightValues{math.NaN(), math.NaN(), math.NaN(), math.NaN()}
	if len(evs) == 0 {
		return v
	}
	times := make([]time.Time, len(evs))
	for i, e := range evs {
		times[i] = e.Time
	}
	days := periodValues(evs, cfg.Schedule.DayIntervals(times), cfg.Schedule.IsDay, cfg)
	nights := periodValues(evs, cfg.Schedule.NightIntervals(times), cfg.Schedule.IsNight, cfg)
	counts := cfg.Schedule.PeriodCount(times[0], times[len(times)-1])

	v.dayMean, v.nightMean = nanstat.Mean(days), nanstat.Mean(nights)
	if len(days) > 0 {
		v.dayRate = perPeriod(nanstat.Sum(days), counts.Day)
	}
	if len(nights) > 0 {
		v.nightRate = perPeriod(nanstat.Sum(nights), counts.Night)
	}
	return v
}

// DayNight tabulates a metric by light period. Each file contributes its
// mean over day periods and over night periods ("<file> day", "<file>
// night"); each group contributes the mean of its members' per-period rates,
// which divide the summed metric by the fractional number of completed
// periods, plus an optional error column per period.
func DayNight(records []*record.Record, groups []string, cfg CircadianConfig) (*table.Table, error) {
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	members, err := groupMembers(records, groups)
	if err != nil {
		return nil, err
	}

	out := table.NewLabelTable("Day/Night "+cfg.Metric.String(), "Metric", []string{cfg.Metric.String()})
	cache := make(map[string]dayNightValues)
	type groupCols struct {
		day, night []float64
	}
	gcols := make([]groupCols, len(groups))
	for i, rs := range members {
		for _, r := range rs {
			v, ok := cache[r.ID]
			if !ok {
				v = dayNightOf(r, cfg)
				cache[r.ID] = v
				addFileColumn(out, r.Basename+" day", []float64{v.dayMean})
				addFileColumn(out, r.Basename+" night", []float64{v.nightMean})
			}
			gcols[i].day = append(gcols[i].day, v.dayRate)
			gcols[i].night = append(gcols[i].night, v.nightRate)
		}
	}
	for i, g := range groups {
		out.MustAddColumn(g+" day", []float64{nanstat.Mean(gcols[i].day)})
		out.MustAddColumn(g+" night", []float64{nanstat.Mean(gcols[i].night)})
		if e := errorColumn(gcols[i].day, cfg.Error); e != nil {
			out.MustAddColumn(g+" day "+cfg.Error.String(), e)
			out.MustAddColumn(g+" night "+cfg.Error.String(), errorColumn(gcols[i].night, cfg.Error))
		}
	}
	return out, nil
}
