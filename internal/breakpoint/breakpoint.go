// Package breakpoint finds the progressive-ratio breakpoint of a record: the
// cumulative output reached before the first long pause in activity.
package breakpoint

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/record"
)

// Style is the quantity reported at the breakpoint.
type Style int

const (
	// Pellets reports the cumulative pellet count.
	Pellets Style = iota
	// Pokes reports the cumulative correct pokes.
	Pokes
)

func (s Style) String() string {
	if s == Pokes {
		return "pokes"
	}
	return "pellets"
}

// Label is the axis label for the style.
func (s Style) Label() string {
	if s == Pokes {
		return "Correct Pokes"
	}
	return "Pellets"
}

// ParseStyle accepts "pellets" or "pokes".
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pellets", "":
		return Pellets, nil
	case "pokes":
		return Pokes, nil
	}
	return Pellets, fmt.Errorf("unknown breakpoint style %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Style) UnmarshalText(b []byte) error {
	v, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DefaultGap is one hour of inactivity.
const DefaultGap = time.Hour

// Config selects what to report and how long a pause ends the session.
type Config struct {
	Style      Style
	Gap        time.Duration
	DateFilter aggregate.DateRange
}

var (
	// ErrNoEvents is returned when nothing is left after the date filter.
	ErrNoEvents = errors.New("no events in range")
	// ErrNoPokeData means the record logs neither poke correctness nor a
	// usable active poke side.
	ErrNoPokeData = errors.New("record has no poke correctness data")
)

// AmbiguousActivePokeError is returned by the poke fallback when the active
// side changed during the session, so no single counter stands for correct
// pokes.
type AmbiguousActivePokeError struct {
	Path  string
	Sides []string
}

func (e *AmbiguousActivePokeError) Error() string {
	return fmt.Sprintf("%s: active poke changed during session (%s); cannot infer correct pokes",
		e.Path, strings.Join(e.Sides, ", "))
}

// Result is a detected breakpoint.
type Result struct {
	// Index is the position of the breakpoint event within the filtered
	// events.
	Index int
	Time  time.Time
	Value float64
}

// BreakIndex returns the index of the event after which the first gap longer
// than gap occurs, or the last index when no gap exceeds it.
func BreakIndex(events []record.Event, gap time.Duration) int {
	for i := 0; i+1 < len(events); i++ {
		if events[i+1].Time.Sub(events[i].Time) > gap {
			return i
		}
	}
	return len(events) - 1
}

// Detect finds the breakpoint of rec. When several rows share the
// breakpoint's timestamp the last of them supplies the value.
func Detect(rec *record.Record, cfg Config) (*Result, error) {
	events := rec.Slice(cfg.DateFilter.From, cfg.DateFilter.To)
	if len(events) == 0 {
		return nil, ErrNoEvents
	}
	idx := BreakIndex(events, cfg.Gap)
	at := events[idx].Time
	last := idx
	for last+1 < len(events) && events[last+1].Time.Equal(at) {
		last++
	}

	res := &Result{Index: idx, Time: at}
	switch cfg.Style {
	case Pellets:
		if !rec.HasColumn(record.ColPellets) {
			return nil, fmt.Errorf("%s: missing %s", rec.Basename, record.ColPellets)
		}
		res.Value = events[last].Pellets
	case Pokes:
		v, err := correctPokes(rec, events, last)
		if err != nil {
			return nil, err
		}
		res.Value = v
	}
	return res, nil
}

func correctPokes(rec *record.Record, events []record.Event, last int) (float64, error) {
	logged := false
	for _, e := range events {
		if e.Correct != record.Unknown {
			logged = true
			break
		}
	}
	if logged {
		n := 0
		for _, e := range events[:last+1] {
			if e.Correct == record.Correct {
				n++
			}
		}
		return float64(n), nil
	}

	if !rec.HasColumn(record.ColActivePoke) {
		return 0, fmt.Errorf("%s: %w", rec.Basename, ErrNoPokeData)
	}
	sides := make(map[string]bool)
	for _, e := range events {
		sides[e.ActivePoke] = true
	}
	if len(sides) != 1 {
		list := make([]string, 0, len(sides))
		for s := range sides {
			list = append(list, s)
		}
		sort.Strings(list)
		return 0, &AmbiguousActivePokeError{Path: rec.Path, Sides: list}
	}
	switch strings.ToLower(events[0].ActivePoke) {
	case "left":
		if rec.HasColumn(record.ColLeftPokes) {
			return events[last].LeftPokes, nil
		}
	case "right":
		if rec.HasColumn(record.ColRightPokes) {
			return events[last].RightPokes, nil
		}
	}
	return 0, fmt.Errorf("%s: %w", rec.Basename, ErrNoPokeData)
}
