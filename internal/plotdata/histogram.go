package plotdata

import (
	"math"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/daynight"
	"github.com/harrison/fedviz/internal/meals"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// IPIEdges returns the interpellet-interval bin edges: 0 to 882 minutes in
// steps of 18, or log10(minutes) from -2 to 5 in steps of 0.1.
func IPIEdges(logx bool) []float64 {
	if logx {
		edges := make([]float64, 0, 71)
		for i := 0; i <= 70; i++ {
			edges = append(edges, math.Round((-2+float64(i)*0.1)*100)/100)
		}
		return edges
	}
	edges := make([]float64, 50)
	for i := range edges {
		edges[i] = float64(i) * 18
	}
	return edges
}

// Histogram counts values into [edge[i], edge[i+1]) bins, the last bin
// closed on the right. Values outside the edges and NaN are ignored. With
// density the counts are scaled so the bars integrate to 1.
func Histogram(values, edges []float64, density bool) []float64 {
	n := len(edges) - 1
	if n < 1 {
		return []float64{}
	}
	counts := make([]float64, n)
	total := 0.0
	for _, v := range values {
		if math.IsNaN(v) || v < edges[0] || v > edges[n] {
			continue
		}
		i := n - 1
		for b := 0; b < n; b++ {
			if v < edges[b+1] {
				i = b
				break
			}
		}
		counts[i]++
		total++
	}
	if density && total > 0 {
		for i := range counts {
			counts[i] /= total * (edges[i+1] - edges[i])
		}
	}
	return counts
}

func ipiUnits(logx bool) string {
	if logx {
		return "log10(minutes)"
	}
	return "minutes"
}

// intervalValues collects positive interpellet intervals, log-scaled on request.
func intervalValues(evs []record.Event, logx bool) []float64 {
	out := make([]float64, 0)
	for _, e := range evs {
		if !(e.Interval > 0) {
			continue
		}
		v := e.Interval
		if logx {
			v = math.Log10(v)
		}
		out = append(out, v)
	}
	return out
}

// histogramTable builds a bar table indexed by left bin edges.
func histogramTable(name, indexName string, edges []float64, names []string, samples [][]float64, density bool) *table.Table {
	out := table.NewNumberTable(name, indexName, edges[:len(edges)-1])
	for i, n := range names {
		out.MustAddColumn(n, Histogram(samples[i], edges, density))
	}
	return out
}

// IPI is the interpellet-interval histogram of each record.
func IPI(records []*record.Record, dr aggregate.DateRange, logx bool) (*table.Table, error) {
	records = unique(records)
	if len(records) == 0 {
		return nil, aggregate.ErrNoRecords
	}
	names := make([]string, len(records))
	samples := make([][]float64, len(records))
	for i, r := range records {
		names[i] = r.Basename
		samples[i] = intervalValues(events(r, dr), logx)
	}
	return histogramTable("Interpellet Intervals", ipiUnits(logx), IPIEdges(logx), names, samples, false), nil
}

// GroupIPI pools the intervals of every member of each group.
func GroupIPI(records []*record.Record, groups []string, dr aggregate.DateRange, logx bool) (*table.Table, error) {
	members, err := groupMembers(records, groups)
	if err != nil {
		return nil, err
	}
	samples := make([][]float64, len(groups))
	for i, rs := range members {
		for _, r := range rs {
			samples[i] = append(samples[i], intervalValues(events(r, dr), logx)...)
		}
	}
	return histogramTable("Interpellet Intervals", ipiUnits(logx), IPIEdges(logx), groups, samples, false), nil
}

// DayNightIPI pools the intervals of all records split by light period,
// with columns Night then Day.
func DayNightIPI(records []*record.Record, sched daynight.Schedule, dr aggregate.DateRange, logx bool) (*table.Table, error) {
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	records = unique(records)
	if len(records) == 0 {
		return nil, aggregate.ErrNoRecords
	}
	var night, day []float64
	for _, r := range records {
		d, n := sched.Partition(events(r, dr))
		day = append(day, intervalValues(d, logx)...)
		night = append(night, intervalValues(n, logx)...)
	}
	return histogramTable("Interpellet Intervals", ipiUnits(logx), IPIEdges(logx),
		[]string{"Night", "Day"}, [][]float64{night, day}, false), nil
}

// defaultLongestMeal sizes the meal histogram when no meals were found.
const defaultLongestMeal = 5

// mealSizes returns the size of each meal found in evs, as floats.
func mealSizes(evs []record.Event, p meals.Policy) []float64 {
	labels, _ := meals.ForEvents(evs, p)
	sizes := meals.Sizes(labels)
	out := make([]float64, len(sizes))
	for i, s := range sizes {
		out[i] = float64(s)
	}
	return out
}

func mealTable(names []string, samples [][]float64, density bool) *table.Table {
	longest := 0.0
	for _, s := range samples {
		for _, v := range s {
			longest = math.Max(longest, v)
		}
	}
	if longest == 0 {
		longest = defaultLongestMeal
	}
	edges := make([]float64, 0, int(longest)+1)
	for e := 1.0; e <= longest+1; e++ {
		edges = append(edges, e)
	}
	return histogramTable("Meal Sizes", "Pellets in Meal", edges, names, samples, density)
}

// MealSizes is the meal-size histogram of each record, bins 1 through the
// longest meal seen in any record.
func MealSizes(records []*record.Record, p meals.Policy, dr aggregate.DateRange, density bool) (*table.Table, error) {
	records = unique(records)
	if len(records) == 0 {
		return nil, aggregate.ErrNoRecords
	}
	names := make([]string, len(records))
	samples := make([][]float64, len(records))
	for i, r := range records {
		names[i] = r.Basename
		samples[i] = mealSizes(events(r, dr), p)
	}
	return mealTable(names, samples, density), nil
}

// GroupMealSizes pools the meal sizes of every member of each group.
func GroupMealSizes(records []*record.Record, groups []string, p meals.Policy, dr aggregate.DateRange, density bool) (*table.Table, error) {
	members, err := groupMembers(records, groups)
	if err != nil {
		return nil, err
	}
	samples := make([][]float64, len(groups))
	for i, rs := range members {
		for _, r := range rs {
			samples[i] = append(samples[i], mealSizes(events(r, dr), p)...)
		}
	}
	return mealTable(groups, samples, density), nil
}
