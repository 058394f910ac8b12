// Package meals groups temporally close pellets into meals.
package meals

import (
	"math"

	"github.com/harrison/fedviz/internal/record"
)

// NoMeal labels a pellet that belongs to no meal.
const NoMeal = 0

// Policy defines what counts as a meal.
type Policy struct {
	// MinPellets is the minimum number of pellets in a meal.
	MinPellets int
	// MaxGap is the largest interpellet interval, in minutes, allowed
	// between consecutive pellets of one meal.
	MaxGap float64
}

// DefaultPolicy matches the device's analysis defaults.
func DefaultPolicy() Policy {
	return Policy{MinPellets: 1, MaxGap: 1}
}

// Label assigns a meal id (1, 2, ...) or NoMeal to each pellet, given the
// interval of each pellet to its predecessor. The result has one entry per
// interval.
//
// At cursor c the next MinPellets-1 intervals are examined. When all are
// below MaxGap, pellet c opens a meal and following pellets are absorbed
// while their interval stays below MaxGap. Otherwise pellet c is left out
// and the cursor advances by one.
func Label(intervals []float64, p Policy) []int {
	n := len(intervals)
	labels := make([]int, n)
	minPellets := p.MinPellets
	if minPellets < 1 {
		minPellets = 1
	}

	meal := 1
	c := 0
	for c < n {
		end := c + minPellets
		if end > n {
			end = n
		}
		following := intervals[c+1 : end]

		// The last pellet has nothing to look ahead at.
		if len(following) == 0 && c == n-1 {
			if minPellets == 1 {
				labels[c] = meal
			}
			break
		}

		if !allBelow(following, p.MaxGap) {
			c++
			continue
		}

		labels[c] = meal
		c++
		for c < n && intervals[c] < p.MaxGap {
			labels[c] = meal
			c++
		}
		meal++
	}
	return labels
}

func allBelow(values []float64, limit float64) bool {
	for _, v := range values {
		if !(v < limit) {
			return false
		}
	}
	return true
}

// PelletIntervals returns one interval per pellet of rec, in minutes. The
// first pellet (and the first pellet after a concatenation seam) has no
// predecessor and reports +Inf so it never joins a preceding meal.
func PelletIntervals(rec *record.Record) []float64 {
	return intervalsOf(rec.Pellets())
}

func intervalsOf(pellets []record.Event) []float64 {
	out := make([]float64, len(pellets))
	for i, e := range pellets {
		if math.IsNaN(e.Interval) {
			out[i] = math.Inf(1)
		} else {
			out[i] = e.Interval
		}
	}
	return out
}

// Sizes returns the number of pellets in each meal, ordered by meal id.
func Sizes(labels []int) []int {
	sizes := make([]int, 0)
	for _, l := range labels {
		if l == NoMeal {
			continue
		}
		for len(sizes) < l {
			sizes = append(sizes, 0)
		}
		sizes[l-1]++
	}
	return sizes
}

// Stats summarises meals over a set of pellets.
type Stats struct {
	Pellets int
	Meals   int
	// PelletsPerMeal is NaN when there are no meals.
	PelletsPerMeal float64
	// PercentInMeals is NaN when there are no pellets.
	PercentInMeals float64
}

// Summarize computes meal statistics from labels.
func Summarize(labels []int) Stats {
	s := Stats{Pellets: len(labels), PelletsPerMeal: math.NaN(), PercentInMeals: math.NaN()}
	sizes := Sizes(labels)
	s.Meals = len(sizes)
	inMeals := 0
	for _, n := range sizes {
		inMeals += n
	}
	if s.Meals > 0 {
		s.PelletsPerMeal = float64(inMeals) / float64(s.Meals)
	}
	if s.Pellets > 0 {
		s.PercentInMeals = float64(inMeals) / float64(s.Pellets) * 100
	}
	return s
}

// ForRecord labels the pellets of rec and summarises them.
func ForRecord(rec *record.Record, p Policy) ([]int, Stats) {
	labels := Label(PelletIntervals(rec), p)
	return labels, Summarize(labels)
}

// ForEvents labels an arbitrary subset of pellet rows, such as the pellets
// that fell at night.
func ForEvents(events []record.Event, p Policy) ([]int, Stats) {
	pellets := make([]record.Event, 0)
	for _, e := range events {
		if e.IsPellet() {
			pellets = append(pellets, e)
		}
	}
	labels := Label(intervalsOf(pellets), p)
	return labels, Summarize(labels)
}
