package groups

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/fedviz/internal/record"
)

func rec(t *testing.T, path string, labels ...string) *record.Record {
	t.Helper()
	r, err := record.LoadReader(path, strings.NewReader("MM:DD:YYYY hh:mm:ss,Pellet_Count\n2024-01-02 10:00:00,0\n"))
	require.NoError(t, err)
	for _, l := range labels {
		r.Groups().Add(l)
	}
	return r
}

func TestWriteCSV_RaggedColumns(t *testing.T) {
	tbl := FromRecords([]*record.Record{
		rec(t, "/data/FED1.csv", "ctrl", "male"),
		rec(t, "/data/FED2.csv"),
		rec(t, "/data/FED3.csv", "drug"),
	}, false)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	assert.Equal(t, ",FED1.csv,FED3.csv\n0,ctrl,drug\n1,male,\n", buf.String())
}

func TestRead(t *testing.T) {
	tbl, err := Read(strings.NewReader(",/a/FED1.csv,/b/FED3.csv\n0,ctrl,drug\n1,male,\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/FED1.csv", "/b/FED3.csv"}, tbl.Files)
	assert.Equal(t, []string{"ctrl", "male"}, tbl.Labels["/a/FED1.csv"])
	assert.Equal(t, []string{"drug"}, tbl.Labels["/b/FED3.csv"])

	empty, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Files)
}

func TestApply(t *testing.T) {
	tbl, err := Read(strings.NewReader(",/a/FED1.csv,/b/FED3.csv\n0,ctrl,drug\n"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		absolute bool
		path     string
		want     []string
		matched  int
	}{
		{"basename match", false, "/elsewhere/FED1.csv", []string{"ctrl"}, 1},
		{"absolute match", true, "/a/FED1.csv", []string{"ctrl"}, 1},
		{"absolute mismatch keeps labels", true, "/elsewhere/FED1.csv", []string{"old"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rec(t, tt.path, "old")
			assert.Equal(t, tt.matched, tbl.Apply([]*record.Record{r}, tt.absolute))
			assert.Equal(t, tt.want, r.Groups().Labels())
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups", "cohort.csv")
	tbl := NewTable()
	tbl.Set("FED1.csv", []string{"ctrl"})
	tbl.Set("FED2.csv", []string{"ctrl", "drug"})
	require.NoError(t, Save(path, tbl))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tbl.Files, back.Files)
	assert.Equal(t, tbl.Labels, back.Labels)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
