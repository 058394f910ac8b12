package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-01-02", want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{in: "2024-01-02 07:30:00", want: time.Date(2024, 1, 2, 7, 30, 0, 0, time.UTC)},
		{in: " 2024-01-02 07:30 ", want: time.Date(2024, 1, 2, 7, 30, 0, 0, time.UTC)},
		{in: "01/02/2024", want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{in: "2024-01-02T07:30:00Z", want: time.Date(2024, 1, 2, 7, 30, 0, 0, time.UTC)},
		{in: "tuesday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestWith(t *testing.T) {
	base := Default()
	s, err := base.With(map[string]string{
		"average_method":    "elapsed",
		"average_bins":      "15 minutes",
		"circ_error":        "STD",
		"lights_on":         "6 am",
		"date_filter_val":   "True",
		"date_filter_start": "2024-01-02 07:00:00",
	})
	require.NoError(t, err)

	assert.Equal(t, aggregate.Elapsed, s.AverageMethod)
	assert.Equal(t, Duration(15*time.Minute), s.AverageBins)
	assert.Equal(t, average.STD, s.CircError)
	assert.Equal(t, Hour(6), s.LightsOn)
	require.NotNil(t, s.DateFilterStart)
	assert.True(t, time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC).Equal(*s.DateFilterStart))
	assert.Nil(t, s.DateFilterEnd)

	assert.Equal(t, aggregate.Calendar, base.AverageMethod, "receiver is untouched")
}

func TestWith_Errors(t *testing.T) {
	tests := []struct {
		name string
		kv   map[string]string
	}{
		{"unknown key", map[string]string{"colour": "red"}},
		{"bad value", map[string]string{"average_method": "sideways"}},
		{"bad time", map[string]string{"date_filter_end": "soon"}},
		{"fails validation", map[string]string{"meal_pellet_minimum": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Default().With(tt.kv)
			assert.Error(t, err)
		})
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Equal(t, "date_filter_val", keys[0])
	assert.Contains(t, keys, "load_last_used")
}
