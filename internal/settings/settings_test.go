package settings

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
	"github.com/harrison/fedviz/internal/breakpoint"
)

func TestRows_FormatsValues(t *testing.T) {
	rows, err := Default().Rows()
	require.NoError(t, err)
	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	assert.Equal(t, "date_filter_val", rows[0].Key)
	assert.Equal(t, "False", values["date_filter_val"])
	assert.Equal(t, "True", values["shade_dark"])
	assert.Equal(t, None, values["retrieval_threshold"])
	assert.Equal(t, None, values["date_filter_start"])
	assert.Equal(t, "7", values["lights_on"])
	assert.Equal(t, "1h", values["average_bins"])
	assert.Equal(t, "SEM", values["average_error"])
	assert.Equal(t, "datetime", values["average_method"])
	assert.Equal(t, "correct pokes (%)", values["bias_style"])
	assert.Equal(t, "pellets", values["break_style"])
}

func TestCSVRoundTrip(t *testing.T) {
	s := Default()
	cutoff := 30.0
	start := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)
	s.RetrievalThreshold = &cutoff
	s.DateFilter = true
	s.DateFilterStart = &start
	s.AverageBins = Duration(15 * time.Minute)
	s.AverageMethod = aggregate.Elapsed
	s.CircValue = aggregate.RetrievalTime
	s.BreakStyle = breakpoint.Pokes
	s.LightsOn = 6

	var buf bytes.Buffer
	require.NoError(t, s.WriteCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "Setting,Values\n"))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestReadCSV_LegacyValues(t *testing.T) {
	in := strings.Join([]string{
		",Values",
		"lights_on,6 am",
		"lights_off,7 pm",
		"average_bins,15 minutes",
		"pellet_bins,2 hours",
		"average_error,None",
		"average_method,shared time",
		"retrieval_threshold,None",
		"poketime_cutoff,2",
		"skip_duplicates,False",
		"img_format,.png",
		"date_filter_s_hour,noon",
	}, "\n") + "\n"

	s, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, Hour(6), s.LightsOn)
	assert.Equal(t, Hour(19), s.LightsOff)
	assert.Equal(t, 15*time.Minute, s.AverageBins.Std())
	assert.Equal(t, 2*time.Hour, s.PelletBins.Std())
	assert.Equal(t, average.None, s.AverageError)
	assert.Equal(t, aggregate.TimeOfDay, s.AverageMethod)
	assert.Nil(t, s.RetrievalThreshold)
	require.NotNil(t, s.PokeTimeCutoff)
	assert.Equal(t, 2.0, *s.PokeTimeCutoff)
	assert.False(t, s.SkipDuplicates)
	assert.Equal(t, Default().MealPelletMinimum, s.MealPelletMinimum)
}

func TestReadCSV_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad hour":   "Setting,Values\nlights_on,25\n",
		"bad metric": "Setting,Values\ncirc_value,calories\n",
		"bad bins":   "Setting,Values\naverage_bins,fortnightly\n",
		"empty":      "",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestHourAndDuration(t *testing.T) {
	hours := map[string]Hour{"midnight": 0, "noon": 12, "12 am": 0, "12 pm": 12, "11 pm": 23, "9": 9}
	for in, want := range hours {
		var h Hour
		require.NoError(t, h.UnmarshalText([]byte(in)), in)
		assert.Equal(t, want, h, in)
	}

	durations := map[string]time.Duration{"1h": time.Hour, "15T": 15 * time.Minute, "5 minutes": 5 * time.Minute, "1 hour": time.Hour}
	for in, want := range durations {
		var d Duration
		require.NoError(t, d.UnmarshalText([]byte(in)), in)
		assert.Equal(t, want, d.Std(), in)
	}
	assert.Equal(t, "2h30m", Duration(150*time.Minute).String())
}

func TestDerivedConfigs(t *testing.T) {
	s := Default()
	s.BreakHours, s.BreakMins = 1, 30
	s.MealDuration = 2
	assert.Equal(t, 90*time.Minute, s.Breakpoint().Gap)
	assert.Equal(t, 2.0, s.MealPolicy().MaxGap)
	assert.True(t, s.DateRange().IsZero())

	cfg := s.Average(aggregate.Pellets)
	assert.Equal(t, time.Hour, cfg.BinWidth)
	assert.Equal(t, 7, cfg.AlignHour)
	assert.Equal(t, average.SEM, cfg.Error)
	assert.Equal(t, 19, s.Schedule().LightsOff)
}

func TestStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "settings")
	st := NewStore(dir)

	s, src, err := st.Resolve()
	require.NoError(t, err)
	assert.Equal(t, FromBuiltin, src)
	assert.Equal(t, Default(), s)

	def := Default()
	def.LightsOn = 8
	require.NoError(t, st.Save(DefaultName, def))
	s, src, err = st.Resolve()
	require.NoError(t, err)
	assert.Equal(t, FromDefault, src)
	assert.Equal(t, Hour(8), s.LightsOn)

	last := Default()
	last.LightsOn = 9
	require.NoError(t, st.Save(LastUsedName, last))
	_, src, _ = st.Resolve()
	assert.Equal(t, FromDefault, src, "LAST_USED without load_last_used is ignored")

	last.LoadLastUsed = true
	require.NoError(t, st.Save(LastUsedName+".csv", last))
	s, src, err = st.Resolve()
	require.NoError(t, err)
	assert.Equal(t, FromLastUsed, src)
	assert.Equal(t, Hour(9), s.LightsOn)

	require.NoError(t, os.WriteFile(st.Path(LastUsedName), []byte("Setting,Values\nlights_on,99\n"), 0644))
	s, src, err = st.Resolve()
	assert.Error(t, err)
	assert.Equal(t, FromDefault, src)
	assert.Equal(t, Hour(8), s.LightsOn)

	names, err := st.List()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultName, LastUsedName}, names)
}
