package plotdata

import (
	"math"
	"strconv"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
	"github.com/harrison/fedviz/internal/nanstat"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// countMetric reports whether a metric is a per-hour total, which is
// averaged over observed days and filled with 0 where nothing happened.
func countMetric(m aggregate.Metric) bool {
	switch m {
	case aggregate.Pellets, aggregate.CorrectPokes, aggregate.Errors,
		aggregate.LeftPokes, aggregate.RightPokes,
		aggregate.CorrectMinusError, aggregate.LeftMinusRight:
		return true
	}
	return false
}

// hourOrder lists clock hours starting at lights on.
func hourOrder(lightsOn int) []int {
	out := make([]int, 24)
	for i := range out {
		out[i] = (lightsOn + i) % 24
	}
	return out
}

// HourlyProfile returns 24 values, the first for the lights-on hour. Each
// is the metric over every event in that clock hour; totals are divided by
// the number of distinct days on which the hour was observed.
func HourlyProfile(rec *record.Record, cfg CircadianConfig) []float64 {
	byHour := make([][]record.Event, 24)
	days := make([]map[string]bool, 24)
	for _, e := range events(rec, cfg.DateFilter) {
		h := e.Time.Hour()
		byHour[h] = append(byHour[h], e)
		if days[h] == nil {
			days[h] = make(map[string]bool)
		}
		days[h][e.Time.Format("2006-01-02")] = true
	}

	if !hasColumns(rec, cfg.Metric.Required()) {
		return nanstat.NaNs(24)
	}
	counts := countMetric(cfg.Metric)
	out := make([]float64, 24)
	for i, h := range hourOrder(cfg.Schedule.LightsOn) {
		if len(byHour[h]) == 0 {
			out[i] = math.NaN()
			if counts {
				out[i] = 0
			}
			continue
		}
		v := aggregate.Reduce(byHour[h], cfg.Metric, cfg.RetrievalCutoff)
		if counts {
			v /= float64(len(days[h]))
		}
		out[i] = v
	}
	return out
}

func hasColumns(rec *record.Record, cols []string) bool {
	for _, c := range cols {
		if !rec.HasColumn(c) {
			return false
		}
	}
	return true
}

// LineChronogram lays out hourly profiles indexed by hours since lights on:
// one column per file, then each group's mean and optional error band.
func LineChronogram(records []*record.Record, groups []string, cfg CircadianConfig) (*table.Table, error) {
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	members, err := groupMembers(records, groups)
	if err != nil {
		return nil, err
	}
	hours := make([]float64, 24)
	for i := range hours {
		hours[i] = float64(i)
	}
	out := table.NewNumberTable("Chronogram "+cfg.Metric.String(), IndexHours, hours)

	profiles := make(map[string][]float64)
	for _, rs := range members {
		for _, r := range rs {
			if _, ok := profiles[r.ID]; ok {
				continue
			}
			profiles[r.ID] = HourlyProfile(r, cfg)
			addFileColumn(out, r.Basename, profiles[r.ID])
		}
	}
	for i, g := range groups {
		rows := make([][]float64, 0, len(members[i]))
		for _, r := range members[i] {
			rows = append(rows, profiles[r.ID])
		}
		out.MustAddColumn(g, nanstat.Across(rows, nanstat.Mean))
		switch cfg.Error {
		case average.SEM:
			out.MustAddColumn(g+" SEM", nanstat.Across(rows, nanstat.SEM))
		case average.STD:
			out.MustAddColumn(g+" STD", nanstat.Across(rows, nanstat.STD))
		}
	}
	return out, nil
}

// HeatmapChronogram has one row per file plus a final "Average" row, and
// one column per clock hour starting at lights on.
func HeatmapChronogram(records []*record.Record, cfg CircadianConfig) (*table.Table, error) {
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	records = unique(records)
	if len(records) == 0 {
		return nil, aggregate.ErrNoRecords
	}
	labels := make([]string, 0, len(records)+1)
	rows := make([][]float64, 0, len(records))
	for _, r := range records {
		labels = append(labels, r.Filename)
		rows = append(rows, HourlyProfile(r, cfg))
	}
	labels = append(labels, "Average")
	rows = append(rows, nanstat.Across(rows, nanstat.Mean))

	out := table.NewLabelTable("Chronogram "+cfg.Metric.String(), "File", labels)
	for c, h := range hourOrder(cfg.Schedule.LightsOn) {
		col := make([]float64, len(rows))
		for i, row := range rows {
			col[i] = row[c]
		}
		out.MustAddColumn(strconv.Itoa(h), col)
	}
	return out, nil
}
