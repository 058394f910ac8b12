package average

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/record"
)

const header = "MM:DD:YYYY hh:mm:ss,Pellet_Count"

func load(t *testing.T, name string, groups []string, rows ...string) *record.Record {
	t.Helper()
	rec, err := record.LoadReader(name, strings.NewReader(header+"\n"+strings.Join(rows, "\n")+"\n"))
	require.NoError(t, err)
	for _, g := range groups {
		rec.Groups().Add(g)
	}
	return rec
}

func ts(hour, minute int) time.Time {
	return time.Date(2024, 1, 2, hour, minute, 0, 0, time.UTC)
}

func fixtures(t *testing.T) (a, b, c *record.Record) {
	a = load(t, "A.csv", []string{"ctrl"},
		"2024-01-02 07:10:00,0", "2024-01-02 07:20:00,1", "2024-01-02 07:50:00,2", "2024-01-02 09:05:00,3")
	b = load(t, "B.csv", []string{"ctrl", "all"},
		"2024-01-02 07:10:00,0", "2024-01-02 07:30:00,1", "2024-01-02 08:10:00,2", "2024-01-02 09:05:00,2")
	c = load(t, "C.csv", []string{"all"},
		"2024-01-02 08:30:00,0", "2024-01-02 08:31:00,1", "2024-01-02 12:10:00,2")
	return a, b, c
}

func TestAverage_IdenticalWindows(t *testing.T) {
	a, b, _ := fixtures(t)
	res, err := Average(context.Background(), []*record.Record{a, b}, []string{"ctrl"}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, Window{Start: ts(7, 10), End: ts(9, 5)}, res.Window)
	assert.Equal(t, []time.Time{ts(7, 0), ts(8, 0), ts(9, 0)}, res.Index)
	require.Len(t, res.Groups, 1)
	g := res.Groups[0]
	assert.Equal(t, []string{"A.csv", "B.csv"}, g.Members)
	assert.InDeltaSlice(t, []float64{1.5, 0.5, 0.5}, g.Mean, 1e-9)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.5}, g.Error, 1e-9)
}

func TestAverage_ErrorKinds(t *testing.T) {
	a, b, _ := fixtures(t)
	cfg := DefaultConfig()

	cfg.Error = STD
	res, err := Average(context.Background(), []*record.Record{a, b}, []string{"ctrl"}, cfg)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.5}, res.Groups[0].Error, 1e-9)

	for _, kind := range []ErrorKind{None, Raw} {
		cfg.Error = kind
		res, err = Average(context.Background(), []*record.Record{a, b}, []string{"ctrl"}, cfg)
		require.NoError(t, err)
		assert.Nil(t, res.Groups[0].Error)
		assert.Len(t, res.Files, 2)
	}
}

func TestAverage_ClipsToSharedWindow(t *testing.T) {
	a, _, c := fixtures(t)
	a.Groups().Add("all")
	res, err := Average(context.Background(), []*record.Record{a, c}, []string{"all"}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, Window{Start: ts(8, 30), End: ts(9, 5)}, res.Window)
	assert.Equal(t, []time.Time{ts(8, 0), ts(9, 0)}, res.Index)
	for _, f := range res.Files {
		assert.Len(t, f.Values, 2)
	}
}

func TestAverage_NoOverlap(t *testing.T) {
	a, _, _ := fixtures(t)
	late := load(t, "D.csv", []string{"ctrl"},
		"2024-01-03 07:10:00,0", "2024-01-03 08:20:00,1")

	_, err := Average(context.Background(), []*record.Record{a, late}, []string{"ctrl"}, DefaultConfig())
	var noOverlap *NoOverlapError
	require.True(t, errors.As(err, &noOverlap))
	assert.Equal(t, time.Date(2024, 1, 3, 7, 10, 0, 0, time.UTC), noOverlap.LatestStart)
	assert.Equal(t, ts(9, 5), noOverlap.EarliestEnd)

	cfg := DefaultConfig()
	cfg.Alignment = aggregate.Elapsed
	res, err := Average(context.Background(), []*record.Record{a, late}, []string{"ctrl"}, cfg)
	require.NoError(t, err)
	assert.True(t, res.Window.Start.IsZero())
	assert.Equal(t, []float64{0, 1}, res.Hours())
}

func TestAverage_DedupsFilesAcrossGroups(t *testing.T) {
	a, b, c := fixtures(t)
	cfg := DefaultConfig()
	cfg.Alignment = aggregate.Elapsed
	res, err := Average(context.Background(), []*record.Record{a, b, c}, []string{"ctrl", "all"}, cfg)
	require.NoError(t, err)

	names := make([]string, len(res.Files))
	for i, f := range res.Files {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"A.csv", "B.csv", "C.csv"}, names)
	require.Len(t, res.Groups, 2)
	assert.Equal(t, []string{"B.csv", "C.csv"}, res.Groups[1].Members)
	for _, g := range res.Groups {
		assert.Len(t, g.Mean, len(res.Index))
	}
}

func TestAverage_SameNameInDifferentFolders(t *testing.T) {
	ctrl := load(t, "cohort1/FED001.csv", []string{"ctrl"},
		"2024-01-02 07:00:00,0", "2024-01-02 07:30:00,1", "2024-01-02 08:30:00,2")
	drug := load(t, "cohort2/FED001.csv", []string{"drug"},
		"2024-01-02 07:00:00,0", "2024-01-02 07:30:00,5", "2024-01-02 08:30:00,9")
	cfg := DefaultConfig()
	cfg.Alignment = aggregate.Elapsed

	res, err := Average(context.Background(), []*record.Record{ctrl, drug}, []string{"ctrl", "drug"}, cfg)
	require.NoError(t, err)

	require.Len(t, res.Groups, 2)
	assert.Equal(t, []string{"FED001.csv"}, res.Groups[0].Members)
	assert.Equal(t, []string{"FED001.csv"}, res.Groups[1].Members)
	assert.InDeltaSlice(t, []float64{1, 1}, res.Groups[0].Mean, 1e-9)
	assert.InDeltaSlice(t, []float64{5, 4}, res.Groups[1].Mean, 1e-9)
	// per-file output keeps one column per name
	require.Len(t, res.Files, 1)
	assert.Equal(t, "FED001.csv", res.Files[0].Name)
}

func TestAverage_Errors(t *testing.T) {
	a, b, _ := fixtures(t)
	recs := []*record.Record{a, b}

	_, err := Average(context.Background(), nil, []string{"ctrl"}, DefaultConfig())
	assert.ErrorIs(t, err, aggregate.ErrNoRecords)

	_, err = Average(context.Background(), recs, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNoGroups)

	_, err = Average(context.Background(), recs, []string{"missing"}, DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptyGroup)

	cfg := DefaultConfig()
	cfg.BinWidth = 0
	_, err = Average(context.Background(), recs, []string{"ctrl"}, cfg)
	assert.Error(t, err)
}

func TestAverage_SingleMemberSEMIsNaN(t *testing.T) {
	a, _, _ := fixtures(t)
	a.Groups().Add("solo")
	res, err := Average(context.Background(), []*record.Record{a}, []string{"solo"}, DefaultConfig())
	require.NoError(t, err)
	for _, v := range res.Groups[0].Error {
		assert.True(t, math.IsNaN(v))
	}
}

func TestParseErrorKind(t *testing.T) {
	tests := map[string]ErrorKind{"None": None, "sem": SEM, "STD": STD, "raw data": Raw, "": None}
	for in, want := range tests {
		got, err := ParseErrorKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseErrorKind("variance")
	assert.Error(t, err)
}
