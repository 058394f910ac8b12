package settings

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// timeLayouts are accepted for date filter bounds typed by hand.
var timeLayouts = []string{
	time.RFC3339,
	time.DateTime,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.DateOnly,
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTime reads a date filter bound. Times without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, use YYYY-MM-DD or YYYY-MM-DD hh:mm:ss", s)
}

// With returns a copy of s with the named settings replaced. Keys are the
// Setting column names; values use the same text as settings files.
func (s *Settings) With(overrides map[string]string) (*Settings, error) {
	rows, err := s.Rows()
	if err != nil {
		return nil, err
	}
	pos := make(map[string]int, len(rows))
	for i, r := range rows {
		pos[r.Key] = i
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		i, ok := pos[k]
		if !ok {
			return nil, fmt.Errorf("unknown setting %q", k)
		}
		v := overrides[k]
		if (k == "date_filter_start" || k == "date_filter_end") && v != "" && v != None {
			t, err := ParseTime(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			v = t.Format(time.RFC3339)
		}
		rows[i].Value = v
	}
	return FromRows(rows)
}

// Keys lists every setting name in file order.
func Keys() []string {
	rows, err := Default().Rows()
	if err != nil {
		return nil
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Key
	}
	return out
}
