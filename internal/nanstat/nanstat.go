// Package nanstat provides NaN-ignoring reductions over float64 samples.
// Missing observations are carried as NaN throughout fedviz; these helpers
// drop them before delegating to montanaflynn/stats.
package nanstat

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Valid returns the non-NaN values.
func Valid(values []float64) stats.Float64Data {
	out := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Count returns the number of non-NaN values.
func Count(values []float64) int {
	return len(Valid(values))
}

// Sum is 0 when every value is NaN.
func Sum(values []float64) float64 {
	s, err := stats.Sum(Valid(values))
	if err != nil {
		return 0
	}
	return s
}

// Mean returns NaN when there are no valid values.
func Mean(values []float64) float64 {
	return orNaN(stats.Mean(Valid(values)))
}

// Median returns NaN when there are no valid values.
func Median(values []float64) float64 {
	return orNaN(stats.Median(Valid(values)))
}

// Max returns NaN when there are no valid values.
func Max(values []float64) float64 {
	return orNaN(stats.Max(Valid(values)))
}

// Min returns NaN when there are no valid values.
func Min(values []float64) float64 {
	return orNaN(stats.Min(Valid(values)))
}

// STD is the population standard deviation (ddof 0).
func STD(values []float64) float64 {
	return orNaN(stats.StandardDeviationPopulation(Valid(values)))
}

// SampleSTD is the sample standard deviation (ddof 1); NaN below two values.
func SampleSTD(values []float64) float64 {
	v := Valid(values)
	if len(v) < 2 {
		return math.NaN()
	}
	return orNaN(stats.StandardDeviationSample(v))
}

// SEM is the sample standard deviation (ddof 1) over the square root of the
// number of valid values. It needs at least two values.
func SEM(values []float64) float64 {
	v := Valid(values)
	if len(v) < 2 {
		return math.NaN()
	}
	sd, err := stats.StandardDeviationSample(v)
	if err != nil {
		return math.NaN()
	}
	return sd / math.Sqrt(float64(len(v)))
}

func orNaN(v float64, err error) float64 {
	if err != nil {
		return math.NaN()
	}
	return v
}

// Reducer collapses one column of observations to a scalar.
type Reducer func([]float64) float64

// Across applies reduce element-wise over equally long series. Shorter series
// contribute NaN past their end.
func Across(series [][]float64, reduce Reducer) []float64 {
	n := 0
	for _, s := range series {
		if len(s) > n {
			n = len(s)
		}
	}
	out := make([]float64, n)
	col := make([]float64, len(series))
	for i := 0; i < n; i++ {
		for j, s := range series {
			if i < len(s) {
				col[j] = s[i]
			} else {
				col[j] = math.NaN()
			}
		}
		out[i] = reduce(col)
	}
	return out
}

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
