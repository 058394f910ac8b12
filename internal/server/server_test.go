package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/fedviz/internal/config"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/settings"
)

const (
	ctrlCSV = "MM:DD:YYYY hh:mm:ss,Pellet_Count\n" +
		"01/02/2024 07:00:00,0\n" +
		"01/02/2024 07:05:00,1\n" +
		"01/02/2024 07:06:00,2\n" +
		"01/02/2024 09:00:00,3\n"
	treatCSV = "MM:DD:YYYY hh:mm:ss,Pellet_Count\n" +
		"01/05/2024 07:00:00,0\n" +
		"01/05/2024 07:30:00,1\n" +
		"01/05/2024 10:00:00,2\n"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func fixtures(t *testing.T) []*record.Record {
	t.Helper()
	a, err := record.LoadReader("FED001.csv", strings.NewReader(ctrlCSV))
	require.NoError(t, err)
	a.SetGroups(record.NewMembership("ctrl"))
	b, err := record.LoadReader("FED002.csv", strings.NewReader(treatCSV))
	require.NoError(t, err)
	b.SetGroups(record.NewMembership("treat"))
	return []*record.Record{a, b}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(config.ServerConfig{}, settings.Default(), nil)
	s.SetRecords(fixtures(t))
	return s
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func columnNames(body map[string]any) []string {
	var out []string
	cols, _ := body["columns"].([]any)
	for _, c := range cols {
		out = append(out, c.(map[string]any)["name"].(string))
	}
	return out
}

func TestHealthz(t *testing.T) {
	w := get(t, newTestServer(t), "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["records"])
	assert.Contains(t, body, "loaded_at")
}

func TestRecordsAndGroups(t *testing.T) {
	s := newTestServer(t)

	w := get(t, s, "/records")
	require.Equal(t, http.StatusOK, w.Code)
	var recs struct {
		Records []recordInfo `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs.Records, 2)
	assert.Equal(t, "FED001.csv", recs.Records[0].Name)
	assert.Equal(t, 4, recs.Records[0].Events)
	assert.Equal(t, "2024-01-02 07:00:00", recs.Records[0].Start)
	assert.Equal(t, []string{"treat"}, recs.Records[1].Groups)

	w = get(t, s, "/groups")
	require.Equal(t, http.StatusOK, w.Code)
	var grp struct {
		Groups  []string            `json:"groups"`
		Members map[string][]string `json:"members"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &grp))
	assert.Equal(t, []string{"ctrl", "treat"}, grp.Groups)
	assert.Equal(t, []string{"FED001.csv"}, grp.Members["ctrl"])
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)

	w := get(t, s, "/summary")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Variable", body["index_name"])
	assert.Contains(t, columnNames(body), "FED001.csv")

	w = get(t, s, "/summary?format=html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<table>")
	assert.Contains(t, w.Body.String(), "FED001.csv")
}

func TestAverage(t *testing.T) {
	s := newTestServer(t)

	w := get(t, s, "/average")
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Contains(t, body["hint"], "method=elapsed")

	w = get(t, s, "/average?method=elapsed")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cols := columnNames(decode(t, w))
	assert.Contains(t, cols, "ctrl")
	assert.Contains(t, cols, "treat SEM")

	w = get(t, s, "/average?metric=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, s, "/average?method=sideways")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTableEndpoints(t *testing.T) {
	tests := []struct {
		target   string
		status   int
		contains []string
	}{
		{target: "/daynight", status: http.StatusOK, contains: []string{"ctrl day", "treat night"}},
		{target: "/daynight?groups=nope", status: http.StatusUnprocessableEntity},
		{target: "/chronogram", status: http.StatusOK, contains: []string{"ctrl"}},
		{target: "/chronogram?style=heatmap", status: http.StatusOK},
		{target: "/chronogram?style=sideways", status: http.StatusBadRequest},
		{target: "/breakpoint", status: http.StatusOK, contains: []string{"FED001.csv", "FED002.csv"}},
		{target: "/breakpoint?by=group", status: http.StatusOK, contains: []string{"ctrl", "treat SEM"}},
		{target: "/meals", status: http.StatusOK, contains: []string{"FED001.csv"}},
		{target: "/meals?groups=ctrl", status: http.StatusOK, contains: []string{"ctrl"}},
		{target: "/meals?from=tomorrow", status: http.StatusBadRequest},
	}
	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := get(t, s, tt.target)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if len(tt.contains) == 0 {
				return
			}
			cols := columnNames(decode(t, w))
			for _, c := range tt.contains {
				assert.Contains(t, cols, c)
			}
		})
	}
}

func TestEmptyServer(t *testing.T) {
	s := New(config.ServerConfig{}, nil, nil)
	w := get(t, s, "/summary")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, s, "/healthz")
	body := decode(t, w)
	assert.Equal(t, float64(0), body["records"])
	assert.NotContains(t, body, "loaded_at")
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "FED001.csv"), []byte(ctrlCSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "FED002.csv"), []byte(treatCSV), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.csv"), []byte("nothing,useful\n1,2\n"), 0644))
	groupsFile := filepath.Join(t.TempDir(), "groups.csv")
	require.NoError(t, os.WriteFile(groupsFile, []byte(",FED001.csv,FED002.csv\n0,ctrl,treat\n"), 0644))

	s := New(config.ServerConfig{DataDir: dir, GroupsFile: groupsFile}, settings.Default(), nil)
	require.NoError(t, s.Reload(context.Background()))

	recs, loadedAt, failed := s.snapshot()
	assert.Len(t, recs, 2)
	assert.False(t, loadedAt.IsZero())
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"ctrl", "treat"}, record.AllGroups(recs))
}

func TestReload_NoDataDir(t *testing.T) {
	s := New(config.ServerConfig{}, nil, nil)
	assert.Error(t, s.Reload(context.Background()))
}

func TestStartSchedule(t *testing.T) {
	s := New(config.ServerConfig{}, nil, nil)
	require.NoError(t, s.StartSchedule())
	s.Stop()

	s = New(config.ServerConfig{ReloadSchedule: "not a schedule"}, nil, nil)
	assert.Error(t, s.StartSchedule())

	s = New(config.ServerConfig{ReloadSchedule: "@every 1h"}, nil, nil)
	require.NoError(t, s.StartSchedule())
	s.Stop()
}

func TestStartWatchReloadsOnNewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "FED001.csv"), []byte(ctrlCSV), 0644))

	s := New(config.ServerConfig{DataDir: dir}, nil, nil)
	s.watchDelay = 50 * time.Millisecond
	require.NoError(t, s.Reload(context.Background()))
	recs, _, _ := s.snapshot()
	require.Len(t, recs, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.StartWatch(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "FED002.csv"), []byte(treatCSV), 0644))

	assert.Eventually(t, func() bool {
		recs, _, _ := s.snapshot()
		return len(recs) == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestIsDeviceFile(t *testing.T) {
	assert.True(t, isDeviceFile("/data/FED001.CSV"))
	assert.True(t, isDeviceFile("run.xlsx"))
	assert.False(t, isDeviceFile("notes.txt"))
	assert.False(t, isDeviceFile("dir"))
}
