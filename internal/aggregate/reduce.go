package aggregate

import (
	"math"

	"github.com/harrison/fedviz/internal/nanstat"
	"github.com/harrison/fedviz/internal/record"
)

func hasColumns(rec *record.Record, cols []string) bool {
	for _, c := range cols {
		if !rec.HasColumn(c) {
			return false
		}
	}
	return true
}

func reduceBins(bins [][]record.Event, rec *record.Record, cfg Config) []float64 {
	if !hasColumns(rec, cfg.Metric.Required()) {
		return nanstat.NaNs(len(bins))
	}
	switch cfg.Metric {
	case LeftPokes:
		return counterDiffs(bins, func(e record.Event) float64 { return e.LeftPokes }, true)
	case RightPokes:
		return counterDiffs(bins, func(e record.Event) float64 { return e.RightPokes }, true)
	case LeftBias:
		left := counterDiffs(bins, func(e record.Event) float64 { return e.LeftPokes }, false)
		right := counterDiffs(bins, func(e record.Event) float64 { return e.RightPokes }, false)
		out := make([]float64, len(bins))
		for i := range out {
			total := left[i] + right[i]
			if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
				out[i] = math.NaN()
				continue
			}
			out[i] = left[i] / total * 100
		}
		return out
	}

	out := make([]float64, len(bins))
	for i, b := range bins {
		out[i] = Reduce(b, cfg.Metric, cfg.RetrievalCutoff)
	}
	return out
}

// Reduce computes a row-wise metric over one slice of events. Counter-based
// metrics (left/right pokes, left bias) need neighbouring bins and are
// approximated here from the binary poke deltas.
func Reduce(events []record.Event, m Metric, retrievalCutoff float64) float64 {
	switch m {
	case Pellets:
		vals := make([]float64, len(events))
		for i, e := range events {
			vals[i] = e.BinaryPellets
		}
		return nanstat.Sum(vals)
	case RetrievalTime:
		vals := make([]float64, len(events))
		for i, e := range events {
			vals[i] = e.RetrievalTime
			if retrievalCutoff > 0 && vals[i] >= retrievalCutoff {
				vals[i] = math.NaN()
			}
		}
		return nanstat.Mean(vals)
	case Intervals:
		vals := make([]float64, len(events))
		for i, e := range events {
			vals[i] = e.Interval
		}
		return nanstat.Mean(vals)
	}

	correct, incorrect := countCorrectness(events)
	switch m {
	case CorrectPokes:
		return float64(correct)
	case Errors:
		return float64(incorrect)
	case CorrectPercent:
		return percent(correct, correct+incorrect)
	case ErrorPercent:
		return percent(incorrect, correct+incorrect)
	case CorrectMinusError:
		return float64(correct - incorrect)
	}

	left, right := make([]float64, len(events)), make([]float64, len(events))
	for i, e := range events {
		left[i], right[i] = e.BinaryLeft, e.BinaryRight
	}
	l, r := nanstat.Sum(left), nanstat.Sum(right)
	switch m {
	case LeftMinusRight:
		return l - r
	case LeftPokes:
		return l
	case RightPokes:
		return r
	case LeftBias:
		if l+r == 0 {
			return math.NaN()
		}
		return l / (l + r) * 100
	}
	return math.NaN()
}

func countCorrectness(events []record.Event) (correct, incorrect int) {
	for _, e := range events {
		switch e.Correct {
		case record.Correct:
			correct++
		case record.Incorrect:
			incorrect++
		}
	}
	return correct, incorrect
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return math.NaN()
	}
	return float64(part) / float64(whole) * 100
}

// counterDiffs turns a monotonic counter into per-bin increments using the
// per-bin maximum rather than a sum, so boundary rows are never double
// counted. Bins without a value are skipped when differencing; the first
// bin with a value keeps that value. With pokesOnly, only poke rows count
// and empty bins become 0.
func counterDiffs(bins [][]record.Event, counter func(record.Event) float64, pokesOnly bool) []float64 {
	maxes := make([]float64, len(bins))
	for i, b := range bins {
		vals := make([]float64, 0, len(b))
		for _, e := range b {
			if pokesOnly && e.Type != record.EventPoke {
				continue
			}
			vals = append(vals, counter(e))
		}
		maxes[i] = nanstat.Max(vals)
	}

	out := nanstat.NaNs(len(bins))
	prev := math.NaN()
	for i, v := range maxes {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(prev) {
			out[i] = v
		} else {
			out[i] = v - prev
		}
		prev = v
	}
	if pokesOnly {
		for i, v := range out {
			if math.IsNaN(v) {
				out[i] = 0
			}
		}
	}
	return out
}
