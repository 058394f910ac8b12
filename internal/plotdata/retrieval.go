package plotdata

import (
	"math"
	"time"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// retrieval applies the cutoff; zero disables it.
func retrieval(e record.Event, cutoff float64) float64 {
	if cutoff > 0 && e.RetrievalTime >= cutoff {
		return math.NaN()
	}
	return e.RetrievalTime
}

// Retrieval pairs the pellet count with the retrieval time of every pellet
// whose retrieval time survives the cutoff.
func Retrieval(rec *record.Record, cutoff float64, dr aggregate.DateRange) (*table.Table, error) {
	var times []time.Time
	var pellets, secs []float64
	for _, e := range events(rec, dr) {
		v := retrieval(e, cutoff)
		if math.IsNaN(v) || math.IsNaN(e.Pellets) {
			continue
		}
		times = append(times, e.Time)
		pellets = append(pellets, e.Pellets)
		secs = append(secs, v)
	}
	out := table.NewTimeTable("Retrieval Time", IndexTime, times)
	out.MustAddColumn("Pellets", pellets)
	out.MustAddColumn("Retrieval Time", secs)
	return out, nil
}

// RetrievalMulti overlays retrieval times of several records on elapsed
// hours, dropping rows where no record has a value.
func RetrievalMulti(records []*record.Record, cutoff float64, dr aggregate.DateRange) (*table.Table, error) {
	records = unique(records)
	if len(records) == 0 {
		return nil, aggregate.ErrNoRecords
	}
	cols := make([]numberColumn, 0, len(records))
	for _, r := range records {
		evs := events(r, dr)
		c := numberColumn{name: r.Basename, keys: elapsedHours(evs), values: make([]float64, len(evs))}
		for i, e := range evs {
			c.values[i] = retrieval(e, cutoff)
		}
		cols = append(cols, c)
	}
	return dropEmptyRows(joinNumber("Retrieval Time", IndexElapsedHours, cols)), nil
}
