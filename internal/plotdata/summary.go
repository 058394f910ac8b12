package plotdata

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/daynight"
	"github.com/harrison/fedviz/internal/meals"
	"github.com/harrison/fedviz/internal/nanstat"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// Summary variable names.
const (
	VarPellets        = "Pellets Taken"
	VarPelletsPerHour = "Pellets per Hour"
	VarMeals          = "Number of Meals"
	VarPelletsPerMeal = "Average Pellets per Meal"
	VarPercentInMeals = "% Pellets within Meals"
	VarTotalPokes     = "Total Pokes"
	VarLeftPercent    = "Left Pokes (%)"
	VarCorrectPercent = "Correct Pokes (%)"
	VarDuration       = "Recording Duration (Hours)"
	VarBatteryChange  = "Battery Change (V)"
	VarBatteryRate    = "Battery Rate (V/hour)"
	VarMotorMean      = "Motor Turns (Mean)"
	VarMotorMedian    = "Motor Turns (Median)"

	suffixNight = " (Night)"
	suffixDay   = " (Day)"
)

// SummaryConfig parameterises Summary.
type SummaryConfig struct {
	Meals meals.Policy
	// MotorTurnsThreshold counts dispenses needing at least this many turns.
	MotorTurnsThreshold float64
	Schedule            daynight.Schedule
	DateFilter          aggregate.DateRange
}

// DefaultSummaryConfig uses the default meal policy and light cycle.
func DefaultSummaryConfig() SummaryConfig {
	return SummaryConfig{
		Meals:               meals.DefaultPolicy(),
		MotorTurnsThreshold: 10,
		Schedule:            daynight.DefaultSchedule(),
	}
}

// stat is an ordered variable list for one file.
type stat struct {
	names  []string
	values map[string]float64
}

func (s *stat) set(name string, v float64) {
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = v
}

// Summary computes summary statistics for each record, one column per
// file followed by the Average and sample STD across files. Day and night
// variants of the intake and poke statistics follow their whole-session
// row.
func Summary(records []*record.Record, cfg SummaryConfig) (*table.Table, error) {
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	records = unique(records)
	if len(records) == 0 {
		return nil, aggregate.ErrNoRecords
	}

	stats := make([]*stat, 0, len(records))
	var order []string
	seen := make(map[string]bool)
	for _, r := range records {
		s := summarize(r, cfg)
		stats = append(stats, s)
		for _, n := range s.names {
			if !seen[n] {
				seen[n] = true
				order = append(order, n)
			}
		}
	}
	order = interleavePeriods(order)

	out := table.NewLabelTable("Summary", "Variable", order)
	rows := make([][]float64, len(order))
	for i, r := range records {
		col := nanstat.NaNs(len(order))
		for j, n := range order {
			if v, ok := stats[i].values[n]; ok {
				col[j] = v
			}
			rows[j] = append(rows[j], col[j])
		}
		out.MustAddColumn(r.Basename, col)
	}
	avg := make([]float64, len(order))
	std := make([]float64, len(order))
	for j := range order {
		avg[j] = nanstat.Mean(rows[j])
		std[j] = nanstat.SampleSTD(rows[j])
	}
	out.MustAddColumn("Average", avg)
	out.MustAddColumn("STD", std)
	return out, nil
}

// interleavePeriods places "<name> (Night)" and "<name> (Day)" right after
// "<name>".
func interleavePeriods(names []string) []string {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasSuffix(n, suffixNight) || strings.HasSuffix(n, suffixDay) {
			base := strings.TrimSuffix(strings.TrimSuffix(n, suffixNight), suffixDay)
			if present[base] {
				continue
			}
		}
		out = append(out, n)
		for _, suffix := range []string{suffixNight, suffixDay} {
			if present[n+suffix] {
				out = append(out, n+suffix)
			}
		}
	}
	return out
}

func summarize(rec *record.Record, cfg SummaryConfig) *stat {
	s := &stat{values: make(map[string]float64)}
	evs := events(rec, cfg.DateFilter)
	if len(evs) == 0 {
		return s
	}
	hours := evs[len(evs)-1].Time.Sub(evs[0].Time).Hours()

	pellets := nanstat.Max(column(evs, func(e record.Event) float64 { return e.Pellets }))
	s.set(VarPellets, pellets)
	s.set(VarPelletsPerHour, ratio(pellets, hours))

	_, m := meals.ForEvents(evs, cfg.Meals)
	s.set(VarMeals, float64(m.Meals))
	s.set(VarPelletsPerMeal, m.PelletsPerMeal)
	s.set(VarPercentInMeals, m.PercentInMeals)

	left := nanstat.Max(column(evs, func(e record.Event) float64 { return e.LeftPokes }))
	right := nanstat.Max(column(evs, func(e record.Event) float64 { return e.RightPokes }))
	total := left + right
	s.set(VarTotalPokes, total)
	hasCorrectness := correctness(rec.Events)
	if hasCorrectness {
		s.set(VarCorrectPercent, correctPercent(evs))
	} else {
		s.set(VarLeftPercent, ratio(left, total)*100)
	}

	s.set(VarDuration, hours)
	battery := evs[len(evs)-1].BatteryVoltage - evs[0].BatteryVoltage
	s.set(VarBatteryChange, battery)
	s.set(VarBatteryRate, ratio(battery, hours))
	turns := make([]float64, 0)
	above := 0
	for _, e := range evs {
		if e.MotorTurns > 0 {
			turns = append(turns, e.MotorTurns)
			if e.MotorTurns >= cfg.MotorTurnsThreshold {
				above++
			}
		}
	}
	s.set(VarMotorMean, nanstat.Mean(turns))
	s.set(VarMotorMedian, nanstat.Median(turns))
	s.set(fmt.Sprintf("Motor Turns Above %g", cfg.MotorTurnsThreshold), float64(above))

	times := make([]time.Time, len(evs))
	for i, e := range evs {
		times[i] = e.Time
	}
	periods := []struct {
		suffix string
		spans  []daynight.Interval
	}{
		{suffixNight, cfg.Schedule.NightIntervals(times)},
		{suffixDay, cfg.Schedule.DayIntervals(times)},
	}
	for _, p := range periods {
		if len(p.spans) == 0 {
			continue
		}
		var pelletSum, leftSum, rightSum, hourSum float64
		var pooled []record.Event
		for _, sp := range p.spans {
			portion := within(evs, sp)
			if len(portion) == 0 {
				continue
			}
			hourSum += portion[len(portion)-1].Time.Sub(portion[0].Time).Hours()
			pelletSum += counterRange(portion, func(e record.Event) float64 { return e.Pellets })
			leftSum += counterRange(portion, func(e record.Event) float64 { return e.LeftPokes })
			rightSum += counterRange(portion, func(e record.Event) float64 { return e.RightPokes })
			pooled = append(pooled, portion...)
		}
		s.set(VarPellets+p.suffix, pelletSum)
		s.set(VarPelletsPerHour+p.suffix, ratio(pelletSum, hourSum))
		_, pm := meals.ForEvents(pooled, cfg.Meals)
		s.set(VarMeals+p.suffix, float64(pm.Meals))
		s.set(VarPelletsPerMeal+p.suffix, pm.PelletsPerMeal)
		s.set(VarPercentInMeals+p.suffix, pm.PercentInMeals)
		pokes := leftSum + rightSum
		s.set(VarTotalPokes+p.suffix, pokes)
		if hasCorrectness {
			s.set(VarCorrectPercent+p.suffix, correctPercent(pooled))
		} else {
			s.set(VarLeftPercent+p.suffix, ratio(leftSum, pokes)*100)
		}
	}
	return s
}

func column(evs []record.Event, get func(record.Event) float64) []float64 {
	out := make([]float64, len(evs))
	for i, e := range evs {
		out[i] = get(e)
	}
	return out
}

// counterRange is max - min of a cumulative counter, 0 when absent.
func counterRange(evs []record.Event, get func(record.Event) float64) float64 {
	vals := column(evs, get)
	d := nanstat.Max(vals) - nanstat.Min(vals)
	if math.IsNaN(d) {
		return 0
	}
	return d
}

// ratio is NaN when the denominator is zero or missing.
func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return math.NaN()
	}
	return num / den
}

func correctness(evs []record.Event) bool {
	for _, e := range evs {
		if e.Correct != record.Unknown {
			return true
		}
	}
	return false
}

// correctPercent is the share of classified pokes that were correct.
func correctPercent(evs []record.Event) float64 {
	var correct, incorrect float64
	for _, e := range evs {
		switch e.Correct {
		case record.Correct:
			correct++
		case record.Incorrect:
			incorrect++
		}
	}
	return ratio(correct, correct+incorrect) * 100
}

// within returns the events with Start <= t <= End.
func within(evs []record.Event, sp daynight.Interval) []record.Event {
	out := make([]record.Event, 0)
	for _, e := range evs {
		if !e.Time.Before(sp.Start) && !e.Time.After(sp.End) {
			out = append(out, e)
		}
	}
	return out
}
