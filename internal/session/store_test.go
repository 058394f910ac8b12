package session

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/settings"
	"github.com/harrison/fedviz/internal/table"
)

const header = "MM:DD:YYYY hh:mm:ss,Device_Number,Battery_Voltage,Motor_Turns,Session_Type,Event,Active_Poke,Left_Poke_Count,Right_Poke_Count,Pellet_Count,Retrieval_Time"

func loadRecord(t *testing.T, name string, rows ...string) *record.Record {
	t.Helper()
	rec, err := record.LoadReader(name, strings.NewReader(header+"\n"+strings.Join(rows, "\n")+"\n"))
	require.NoError(t, err)
	return rec
}

func sampleSession(t *testing.T, name string) *Session {
	t.Helper()
	a := loadRecord(t, "A.csv",
		"01/02/2024 07:00:00,1,4.2,0,FR1,Left,Left,1,0,0,",
		"01/02/2024 07:10:00,1,4.2,3,FR1,Pellet,Left,1,0,1,4",
		"01/02/2024 08:10:00,1,4.1,2,FR1,Pellet,Left,2,0,2,",
	)
	a.Groups().Add("ctrl")
	a.Groups().Add("all")
	b := loadRecord(t, "B.csv",
		"01/02/2024 07:05:00,2,4.0,3,FR1,Pellet,Left,0,0,1,1.5",
	)

	tbl := table.NewTimeTable("Pellets", "Time", []time.Time{a.Start, a.End})
	tbl.MustAddColumn("A", []float64{1, math.NaN()})

	st := settings.Default()
	st.PelletValues = settings.StyleFrequency

	return &Session{
		Name:     name,
		Records:  []*record.Record{a, b},
		Outputs:  []Output{{Name: "Pellets", Kind: "pellets", Params: map[string]string{"bins": "1h"}, Table: tbl}},
		Settings: st,
	}
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	orig := sampleSession(t, "experiment")

	require.NoError(t, s.Save(ctx, orig))
	assert.NotEmpty(t, orig.ID)

	got, err := s.Load(ctx, "experiment")
	require.NoError(t, err)
	assert.Equal(t, orig.ID, got.ID)
	require.Len(t, got.Records, 2)

	a := got.Records[0]
	assert.Equal(t, orig.Records[0].ID, a.ID)
	assert.Equal(t, "A.csv", a.Basename)
	assert.Equal(t, "FR1", a.Mode)
	assert.Equal(t, []string{"ctrl", "all"}, a.Groups().Labels())
	assert.Empty(t, got.Records[1].Groups().Labels())
	require.Equal(t, 3, a.Len())
	assert.True(t, a.Start.Equal(orig.Records[0].Start))
	assert.Equal(t, 2.0, a.Events[2].Pellets)
	assert.Equal(t, 4.0, a.Events[1].RetrievalTime)
	assert.True(t, math.IsNaN(a.Events[0].RetrievalTime))
	assert.Equal(t, orig.Records[0].Events[2].Interval, a.Events[2].Interval)

	require.Len(t, got.Outputs, 1)
	out := got.Outputs[0]
	assert.Equal(t, "pellets", out.Kind)
	assert.Equal(t, map[string]string{"bins": "1h"}, out.Params)
	vals, ok := out.Table.Column("A")
	require.True(t, ok)
	assert.Equal(t, 1.0, vals[0])
	assert.True(t, math.IsNaN(vals[1]))

	require.NotNil(t, got.Settings)
	assert.Equal(t, settings.StyleFrequency, got.Settings.PelletValues)
}

func TestStore_SaveReplacesByName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	first := sampleSession(t, LastUsed)
	require.NoError(t, s.Save(ctx, first))

	second := sampleSession(t, LastUsed)
	second.Records = second.Records[:1]
	second.Outputs = nil
	require.NoError(t, s.Save(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := s.Load(ctx, LastUsed)
	require.NoError(t, err)
	assert.Len(t, got.Records, 1)
	assert.Empty(t, got.Outputs)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Records)
	assert.Equal(t, 0, list[0].Outputs)
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Save(ctx, sampleSession(t, "one")))
	require.NoError(t, s.Save(ctx, sampleSession(t, "two")))

	list, err := s.List(ctx)
	require.NoError(t, err)
	names := []string{}
	for _, sum := range list {
		names = append(names, sum.Name)
		assert.Equal(t, 2, sum.Records)
		assert.Equal(t, 1, sum.Outputs)
	}
	assert.ElementsMatch(t, []string{"one", "two"}, names)

	require.NoError(t, s.Delete(ctx, "one"))
	_, err = s.Load(ctx, "one")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "one"), ErrNotFound)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM session_records`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestStore_SaveValidation(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	assert.Error(t, s.Save(ctx, &Session{Name: "  "}))

	bad := sampleSession(t, "bad")
	bad.Outputs[0].Table = nil
	assert.Error(t, s.Save(ctx, bad))
	_, err := s.Load(ctx, "bad")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_NoSettings(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	sess := sampleSession(t, "bare")
	sess.Settings = nil
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Load(ctx, "bare")
	require.NoError(t, err)
	assert.Nil(t, got.Settings)
}

func TestStore_FileMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleSession(t, "keep")))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()

	versions, err := s.AppliedVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, len(migrations))
	for i, v := range versions {
		assert.Equal(t, migrations[i].Version, v.Version)
	}

	got, err := s.Load(ctx, "keep")
	require.NoError(t, err)
	assert.Len(t, got.Records, 2)
}
