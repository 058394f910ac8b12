package daynight

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/fedviz/internal/record"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 1, day, hour, minute, 0, 0, time.UTC)
}

func TestIsNight(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		time     time.Time
		want     bool
	}{
		{"standard morning", Schedule{7, 19}, at(1, 8, 0), false},
		{"standard lights off", Schedule{7, 19}, at(1, 19, 0), true},
		{"standard before lights on", Schedule{7, 19}, at(1, 6, 59), true},
		{"standard lights on", Schedule{7, 19}, at(1, 7, 0), false},
		{"inverted dark midday", Schedule{19, 7}, at(1, 12, 0), true},
		{"inverted light midnight", Schedule{19, 7}, at(1, 0, 0), false},
		{"no night", Schedule{7, 7}, at(1, 3, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.schedule.IsNight(tt.time))
			assert.Equal(t, !tt.want, tt.schedule.IsDay(tt.time))
		})
	}
}

func TestHoursBetween(t *testing.T) {
	hours := HoursBetween(at(1, 6, 45), at(1, 9, 10))
	require.Len(t, hours, 4)
	assert.Equal(t, at(1, 6, 0), hours[0])
	assert.Equal(t, at(1, 9, 0), hours[3])
}

func TestNightIntervals_TwoFullNights(t *testing.T) {
	s := Schedule{LightsOn: 7, LightsOff: 19}
	hours := HoursBetween(at(1, 7, 0), at(3, 7, 0))
	require.Len(t, hours, 49)

	nights := s.NightIntervals(hours)
	require.Len(t, nights, 2)
	assert.Equal(t, Interval{Start: at(1, 19, 0), End: at(2, 7, 0)}, nights[0])
	assert.Equal(t, Interval{Start: at(2, 19, 0), End: at(3, 7, 0)}, nights[1])
	for _, n := range nights {
		assert.Equal(t, 12*time.Hour, n.Duration())
	}

	days := s.DayIntervals(hours)
	require.Len(t, days, 3)
	for _, d := range days {
		for _, n := range nights {
			overlap := d.Start.Before(n.End) && n.Start.Before(d.End)
			assert.False(t, overlap, "day %v overlaps night %v", d, n)
		}
	}
}

func TestIntervals_PartitionComplete(t *testing.T) {
	schedules := []Schedule{{7, 19}, {19, 7}, {6, 18}, {0, 12}, {22, 3}}
	ranges := [][2]time.Time{
		{at(1, 0, 0), at(3, 0, 0)},
		{at(1, 13, 0), at(4, 2, 0)},
		{at(1, 7, 0), at(1, 8, 0)},
	}
	for _, s := range schedules {
		for _, r := range ranges {
			hours := HoursBetween(r[0], r[1])
			all := append(s.NightIntervals(hours), s.DayIntervals(hours)...)
			sort.Slice(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })

			require.NotEmpty(t, all)
			assert.Equal(t, hours[0], all[0].Start, "%v %v", s, r)
			assert.Equal(t, hours[len(hours)-1], all[len(all)-1].End, "%v %v", s, r)
			for i := 1; i < len(all); i++ {
				assert.Equal(t, all[i-1].End, all[i].Start, "gap or overlap in %v %v", s, r)
			}
		}
	}
}

func TestIntervals_NoNight(t *testing.T) {
	s := Schedule{LightsOn: 9, LightsOff: 9}
	hours := HoursBetween(at(1, 0, 0), at(2, 0, 0))
	assert.Empty(t, s.NightIntervals(hours))
	assert.Equal(t, []Interval{{Start: hours[0], End: hours[len(hours)-1]}}, s.DayIntervals(hours))
}

func TestPeriodCount(t *testing.T) {
	tests := []struct {
		name       string
		schedule   Schedule
		start, end time.Time
		want       Counts
	}{
		{"two full cycles", Schedule{7, 19}, at(1, 7, 0), at(3, 7, 0), Counts{Day: 2, Night: 2}},
		{"partial day and night", Schedule{7, 19}, at(1, 10, 0), at(1, 22, 0), Counts{Day: 0.75, Night: 0.25}},
		{"mid-hour start", Schedule{7, 19}, at(1, 18, 30), at(1, 20, 0), Counts{Day: 0.5 / 12, Night: 1.0 / 12}},
		{"unequal periods", Schedule{6, 22}, at(1, 22, 0), at(2, 6, 0), Counts{Day: 0, Night: 1}},
		{"inverted", Schedule{19, 7}, at(1, 7, 0), at(1, 19, 0), Counts{Day: 0, Night: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.schedule.PeriodCount(tt.start, tt.end)
			assert.InDelta(t, tt.want.Day, got.Day, 1e-9)
			assert.InDelta(t, tt.want.Night, got.Night, 1e-9)
		})
	}
}

func TestLengths(t *testing.T) {
	assert.Equal(t, 12*time.Hour, Schedule{7, 19}.DayLength())
	assert.Equal(t, 8*time.Hour, Schedule{6, 22}.NightLength())
	assert.Equal(t, 16*time.Hour, Schedule{6, 22}.DayLength())
	assert.Equal(t, 10*time.Hour, Schedule{20, 10}.NightLength())
}

func TestValidateAndPartition(t *testing.T) {
	assert.NoError(t, DefaultSchedule().Validate())
	assert.Error(t, Schedule{LightsOn: 24}.Validate())
	assert.Error(t, Schedule{LightsOff: -1}.Validate())

	events := []record.Event{{Time: at(1, 6, 0)}, {Time: at(1, 12, 0)}, {Time: at(1, 20, 0)}}
	day, night := DefaultSchedule().Partition(events)
	assert.Len(t, day, 1)
	assert.Len(t, night, 2)
}
