package concat

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/fedviz/internal/record"
)

func load(t *testing.T, name, header string, rows ...string) *record.Record {
	t.Helper()
	rec, err := record.LoadReader(name, strings.NewReader(header+"\n"+strings.Join(rows, "\n")+"\n"))
	require.NoError(t, err)
	return rec
}

func fixtures(t *testing.T) (a, b *record.Record) {
	a = load(t, "A.csv", "MM:DD:YYYY hh:mm:ss,Pellet_Count,Left_Poke_Count,Mode",
		"2024-01-02 10:00:00,0,1,FR1",
		"2024-01-02 10:30:00,1,1,FR1",
		"2024-01-02 11:00:00,2,2,FR1",
	)
	b = load(t, "B.csv", "MM:DD:YYYY hh:mm:ss,Pellet_Count,Mode",
		"2024-01-02 12:00:00,0,FR1",
		"2024-01-02 12:10:00,1,FR1",
		"2024-01-02 12:20:00,2,FR1",
		"2024-01-02 12:30:00,3,FR1",
	)
	return a, b
}

func pellets(r *record.Record) []float64 {
	out := make([]float64, r.Len())
	for i, e := range r.Events {
		out[i] = e.Pellets
	}
	return out
}

func TestConcat_Monotonic(t *testing.T) {
	a, b := fixtures(t)
	// Input order does not matter; components are ordered by start time.
	out, err := Concat([]*record.Record{b, a}, "/data/AB.csv")
	require.NoError(t, err)

	got := pellets(out)
	assert.Equal(t, []float64{0, 1, 2, 2, 3, 4, 5}, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}
	assert.Equal(t, (2.0-0)+(3.0-0), got[len(got)-1])

	tags := make([]int, out.Len())
	for i, e := range out.Events {
		tags[i] = e.ConcatIndex
	}
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1, 1}, tags)
	assert.Equal(t, "AB.csv", out.Basename)
	assert.Equal(t, "FR1", out.Mode)
}

func TestConcat_NullsStitchInterval(t *testing.T) {
	a, b := fixtures(t)
	out, err := Concat([]*record.Record{a, b}, "AB.csv")
	require.NoError(t, err)

	intervals := make([]float64, out.Len())
	for i, e := range out.Events {
		intervals[i] = e.Interval
	}
	assert.True(t, math.IsNaN(intervals[1]), "first pellet has no interval")
	assert.Equal(t, 30.0, intervals[2])
	assert.True(t, math.IsNaN(intervals[4]), "interval across the stitch is dropped")
	assert.Equal(t, 10.0, intervals[5])
	assert.Equal(t, 10.0, intervals[6])
}

func TestConcat_KeepsSharedColumnsOnly(t *testing.T) {
	a, b := fixtures(t)
	out, err := Concat([]*record.Record{a, b}, "AB.csv")
	require.NoError(t, err)
	assert.True(t, out.HasColumn(record.ColPellets))
	assert.True(t, out.HasColumn(record.ColConcat))
	assert.False(t, out.HasColumn(record.ColLeftPokes))
	assert.Contains(t, out.Missing, record.ColLeftPokes)
	assert.True(t, math.IsNaN(out.Events[0].LeftPokes))
}

func TestConcat_InputsUnmodified(t *testing.T) {
	a, b := fixtures(t)
	_, err := Concat([]*record.Record{a, b}, "AB.csv")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, pellets(b))
	assert.Equal(t, -1, b.Events[0].ConcatIndex)
}

func TestConcat_Overlap(t *testing.T) {
	a, _ := fixtures(t)
	tests := []struct {
		name  string
		start string
	}{
		{"overlapping", "2024-01-02 10:45:00"},
		{"touching", "2024-01-02 11:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := load(t, "C.csv", "MM:DD:YYYY hh:mm:ss,Pellet_Count",
				tt.start+",0", "2024-01-02 13:00:00,1")
			_, err := Concat([]*record.Record{c, a}, "AC.csv")
			var cannot *CannotConcatenateError
			require.True(t, errors.As(err, &cannot))
			assert.Equal(t, "A.csv", cannot.Earlier)
			assert.Equal(t, "C.csv", cannot.Later)
			assert.Equal(t, time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC), cannot.EarlierEnd)
		})
	}

	_, err := Concat(nil, "x.csv")
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	a, b := fixtures(t)
	path := filepath.Join(t.TempDir(), "AB.csv")
	_, err := Save([]*record.Record{a, b}, path)
	require.NoError(t, err)

	back, err := record.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 2, 3, 4, 5}, pellets(back))
	assert.Equal(t, 1, back.Events[3].ConcatIndex)
	assert.True(t, math.IsNaN(back.Events[4].Interval))
	assert.Equal(t, "FR1", back.Mode)
	assert.Equal(t, []string{"Mode"}, back.Foreign)
}
