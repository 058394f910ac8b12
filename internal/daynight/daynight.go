// Package daynight splits time ranges into light and dark periods of a
// daily light cycle.
package daynight

import (
	"fmt"
	"time"

	"github.com/harrison/fedviz/internal/record"
)

// Schedule is a daily light cycle given as hours of the day (0-23).
type Schedule struct {
	LightsOn  int `yaml:"lights_on" json:"lights_on"`
	LightsOff int `yaml:"lights_off" json:"lights_off"`
}

// DefaultSchedule is lights on at 07:00 and off at 19:00.
func DefaultSchedule() Schedule {
	return Schedule{LightsOn: 7, LightsOff: 19}
}

// Validate checks both hours are within a day.
func (s Schedule) Validate() error {
	if s.LightsOn < 0 || s.LightsOn > 23 {
		return fmt.Errorf("lights_on must be 0-23, got %d", s.LightsOn)
	}
	if s.LightsOff < 0 || s.LightsOff > 23 {
		return fmt.Errorf("lights_off must be 0-23, got %d", s.LightsOff)
	}
	return nil
}

// HasNight is false when the lights never go off.
func (s Schedule) HasNight() bool {
	return s.LightsOn != s.LightsOff
}

// IsNight classifies the wall-clock time of t.
func (s Schedule) IsNight(t time.Time) bool {
	clock := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
	on := time.Duration(s.LightsOn) * time.Hour
	off := time.Duration(s.LightsOff) * time.Hour
	switch {
	case off > on:
		return clock >= off || clock < on
	case off < on:
		return clock >= off && clock < on
	default:
		return false
	}
}

// IsDay is the complement of IsNight.
func (s Schedule) IsDay(t time.Time) bool {
	return !s.IsNight(t)
}

// DayLength is the duration of one lights-on period.
func (s Schedule) DayLength() time.Duration {
	return 24*time.Hour - s.NightLength()
}

// NightLength is the duration of one lights-off period.
func (s Schedule) NightLength() time.Duration {
	if s.LightsOff > s.LightsOn {
		return time.Duration(24-(s.LightsOff-s.LightsOn)) * time.Hour
	}
	return time.Duration(s.LightsOn-s.LightsOff) * time.Hour
}

// Interval is a [Start, End] span.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// HoursBetween returns every top of the hour from start (truncated) through
// end (truncated).
func HoursBetween(start, end time.Time) []time.Time {
	s := start.Truncate(time.Hour)
	e := end.Truncate(time.Hour)
	out := make([]time.Time, 0, int(e.Sub(s)/time.Hour)+1)
	for t := s; !t.After(e); t = t.Add(time.Hour) {
		out = append(out, t)
	}
	return out
}

// NightIntervals extracts the night spans of an ordered time index. A span
// starts at the first night sample (or the first sample) and ends at the
// next day sample (or the last sample). There are none when lights never
// go off.
func (s Schedule) NightIntervals(times []time.Time) []Interval {
	if !s.HasNight() {
		return nil
	}
	return spans(times, s.IsNight)
}

// DayIntervals is the day counterpart of NightIntervals. Without a night the
// whole index is one day.
func (s Schedule) DayIntervals(times []time.Time) []Interval {
	if !s.HasNight() {
		if len(times) == 0 {
			return nil
		}
		return []Interval{{Start: times[0], End: times[len(times)-1]}}
	}
	return spans(times, s.IsDay)
}

func spans(times []time.Time, in func(time.Time) bool) []Interval {
	out := make([]Interval, 0)
	if len(times) == 0 {
		return out
	}
	open := false
	var start time.Time
	for i, t := range times {
		v := in(t)
		switch {
		case v && !open:
			start, open = t, true
		case !v && open:
			out = append(out, Interval{Start: start, End: times[i]})
			open = false
		}
	}
	if open {
		out = append(out, Interval{Start: start, End: times[len(times)-1]})
	}
	return out
}

// Counts are fractional numbers of completed periods.
type Counts struct {
	Day   float64 `json:"day"`
	Night float64 `json:"night"`
}

// PeriodCount walks hour by hour from start to end, cutting at each light
// transition, and accumulates each segment as a fraction of a full day or
// night period. Used to turn per-period totals into per-period rates.
func (s Schedule) PeriodCount(start, end time.Time) Counts {
	cuts := []time.Time{start}
	for t := start.Truncate(time.Hour); t.Before(end); {
		t = t.Add(time.Hour)
		if !t.Before(end) {
			break
		}
		if t.Hour() == s.LightsOn || t.Hour() == s.LightsOff {
			cuts = append(cuts, t)
		}
	}
	cuts = append(cuts, end)

	var c Counts
	day, night := s.DayLength(), s.NightLength()
	for i, t := range cuts[:len(cuts)-1] {
		seg := cuts[i+1].Sub(t)
		if s.IsDay(t) {
			c.Day += float64(seg) / float64(day)
		} else {
			c.Night += float64(seg) / float64(night)
		}
	}
	return c
}

// Partition splits events by the light period their timestamp falls in.
func (s Schedule) Partition(events []record.Event) (day, night []record.Event) {
	day = make([]record.Event, 0)
	night = make([]record.Event, 0)
	for _, e := range events {
		if s.IsNight(e.Time) {
			night = append(night, e)
		} else {
			day = append(day, e)
		}
	}
	return day, night
}
