package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
	"github.com/harrison/fedviz/internal/breakpoint"
	"github.com/harrison/fedviz/internal/plotdata"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/report"
	"github.com/harrison/fedviz/internal/settings"
	"github.com/harrison/fedviz/internal/table"
)

// queryKeys maps query parameters to the settings they override.
var queryKeys = map[string][]string{
	"method":     {"average_method"},
	"bins":       {"average_bins"},
	"align_hour": {"average_align_start"},
	"align_days": {"average_align_days"},
	"error":      {"average_error", "circ_error", "break_error"},
	"lights_on":  {"lights_on"},
	"lights_off": {"lights_off"},
	"from":       {"date_filter_start"},
	"to":         {"date_filter_end"},
	"break":      {"break_style"},
	"break_h":    {"break_hours"},
	"break_m":    {"break_mins"},
	"meal_min":   {"meal_pellet_minimum"},
	"meal_gap":   {"meal_duration"},
	"density":    {"norm_meals"},
	"cutoff":     {"retrieval_threshold"},
}

// request is the parsed query of a table endpoint.
type request struct {
	records  []*record.Record
	settings *settings.Settings
	groups   []string
	byGroup  bool
}

func (s *Server) parse(c *gin.Context) (*request, bool) {
	recs, _, _ := s.snapshot()

	overrides := make(map[string]string)
	for param, keys := range queryKeys {
		v, ok := c.GetQuery(param)
		if !ok {
			continue
		}
		for _, k := range keys {
			overrides[k] = v
		}
	}
	if overrides["date_filter_start"] != "" || overrides["date_filter_end"] != "" {
		overrides["date_filter_val"] = "True"
	}

	st := s.settings
	if len(overrides) > 0 {
		var err error
		st, err = s.settings.With(overrides)
		if err != nil {
			badRequest(c, err)
			return nil, false
		}
	}

	req := &request{records: recs, settings: st}
	if g := c.Query("groups"); g != "" {
		for _, label := range strings.Split(g, ",") {
			if label = strings.TrimSpace(label); label != "" {
				req.groups = append(req.groups, label)
			}
		}
		req.byGroup = true
	} else {
		req.groups = record.AllGroups(recs)
		req.byGroup = c.Query("by") == "group"
	}
	return req, true
}

func (r *request) metric(c *gin.Context, fallback aggregate.Metric) (aggregate.Metric, bool) {
	v := c.Query("metric")
	if v == "" {
		return fallback, true
	}
	m, err := aggregate.ParseMetric(v)
	if err != nil {
		badRequest(c, err)
		return 0, false
	}
	return m, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail maps domain errors to status codes.
func (s *Server) fail(c *gin.Context, err error) {
	var overlap *average.NoOverlapError
	var ambiguous *breakpoint.AmbiguousActivePokeError
	switch {
	case errors.As(err, &overlap):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"hint":  "retry with method=time or method=elapsed",
		})
	case errors.Is(err, average.ErrNoGroups), errors.Is(err, average.ErrEmptyGroup),
		errors.Is(err, plotdata.ErrNoSeries), errors.As(err, &ambiguous):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, plotdata.ErrNoData), errors.Is(err, aggregate.ErrNoRecords):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.log.Error("table request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) respond(c *gin.Context, t *table.Table, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) health(c *gin.Context) {
	recs, loadedAt, failed := s.snapshot()
	body := gin.H{"status": "ok", "records": len(recs), "failed": failed}
	if !loadedAt.IsZero() {
		body["loaded_at"] = loadedAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, body)
}

type recordInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Mode    string   `json:"mode"`
	Events  int      `json:"events"`
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
	Groups  []string `json:"groups"`
	Missing []string `json:"missing_columns,omitempty"`
}

func (s *Server) listRecords(c *gin.Context) {
	recs, _, _ := s.snapshot()
	out := make([]recordInfo, 0, len(recs))
	for _, r := range recs {
		info := recordInfo{
			ID:     r.ID,
			Name:   r.Basename,
			Path:   r.Path,
			Mode:   r.Mode,
			Events: r.Len(),
			Groups: r.Groups().Labels(),
		}
		if n := r.Len(); n > 0 {
			info.Start = r.Events[0].Time.Format(table.TimeLayout)
			info.End = r.Events[n-1].Time.Format(table.TimeLayout)
		}
		if w := r.Warning(); w != nil {
			info.Missing = w.Columns
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

func (s *Server) listGroups(c *gin.Context) {
	recs, _, _ := s.snapshot()
	labels := record.AllGroups(recs)
	members := make(map[string][]string, len(labels))
	for _, l := range labels {
		names := make([]string, 0)
		for _, r := range record.InGroup(recs, l) {
			names = append(names, r.Basename)
		}
		members[l] = names
	}
	c.JSON(http.StatusOK, gin.H{"groups": labels, "members": members})
}

func (s *Server) summary(c *gin.Context) {
	req, ok := s.parse(c)
	if !ok {
		return
	}
	t, err := plotdata.Summary(req.records, plotdata.SummaryFrom(req.settings))
	if err != nil {
		s.fail(c, err)
		return
	}
	if c.Query("format") != "html" {
		c.JSON(http.StatusOK, t)
		return
	}
	page, err := report.Summary(req.records, t, req.settings, time.Now()).HTML()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) average(c *gin.Context) {
	req, ok := s.parse(c)
	if !ok {
		return
	}
	m, ok := req.metric(c, aggregate.Pellets)
	if !ok {
		return
	}
	res, err := average.Average(c.Request.Context(), req.records, req.groups, req.settings.Average(m))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, plotdata.Average(res))
}

func (s *Server) circadian(c *gin.Context) (*request, plotdata.CircadianConfig, bool) {
	req, ok := s.parse(c)
	if !ok {
		return nil, plotdata.CircadianConfig{}, false
	}
	cfg := plotdata.CircadianFrom(req.settings)
	m, ok := req.metric(c, cfg.Metric)
	if !ok {
		return nil, cfg, false
	}
	cfg.Metric = m
	return req, cfg, true
}

func (s *Server) dayNight(c *gin.Context) {
	req, cfg, ok := s.circadian(c)
	if !ok {
		return
	}
	t, err := plotdata.DayNight(req.records, req.groups, cfg)
	s.respond(c, t, err)
}

func (s *Server) chronogram(c *gin.Context) {
	req, cfg, ok := s.circadian(c)
	if !ok {
		return
	}
	switch c.DefaultQuery("style", "line") {
	case "line":
		t, err := plotdata.LineChronogram(req.records, req.groups, cfg)
		s.respond(c, t, err)
	case "heatmap":
		t, err := plotdata.HeatmapChronogram(req.records, cfg)
		s.respond(c, t, err)
	default:
		badRequest(c, errors.New("style must be line or heatmap"))
	}
}

func (s *Server) breakpoint(c *gin.Context) {
	req, ok := s.parse(c)
	if !ok {
		return
	}
	cfg := req.settings.Breakpoint()
	if req.byGroup {
		t, err := plotdata.GroupBreakpoints(req.records, req.groups, cfg, req.settings.BreakError)
		s.respond(c, t, err)
		return
	}
	t, err := plotdata.Breakpoints(req.records, cfg)
	s.respond(c, t, err)
}

func (s *Server) meals(c *gin.Context) {
	req, ok := s.parse(c)
	if !ok {
		return
	}
	st := req.settings
	if req.byGroup {
		t, err := plotdata.GroupMealSizes(req.records, req.groups, st.MealPolicy(), st.DateRange(), st.NormMeals)
		s.respond(c, t, err)
		return
	}
	t, err := plotdata.MealSizes(req.records, st.MealPolicy(), st.DateRange(), st.NormMeals)
	s.respond(c, t, err)
}
