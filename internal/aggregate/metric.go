package aggregate

import (
	"fmt"
	"strings"

	"github.com/harrison/fedviz/internal/record"
)

// Metric selects the per-bin reduction.
type Metric int

const (
	Pellets Metric = iota
	RetrievalTime
	Intervals
	CorrectPokes
	Errors
	CorrectPercent
	ErrorPercent
	CorrectMinusError
	LeftMinusRight
	LeftPokes
	RightPokes
	LeftBias
)

var metricLabels = map[Metric]string{
	Pellets:           "pellets",
	RetrievalTime:     "retrieval time",
	Intervals:         "interpellet intervals",
	CorrectPokes:      "correct pokes",
	Errors:            "errors",
	CorrectPercent:    "correct pokes (%)",
	ErrorPercent:      "errors (%)",
	CorrectMinusError: "poke bias (correct - error)",
	LeftMinusRight:    "poke bias (left - right)",
	LeftPokes:         "left pokes",
	RightPokes:        "right pokes",
	LeftBias:          "poke bias (left %)",
}

// Metrics lists every metric in declaration order.
func Metrics() []Metric {
	out := make([]Metric, 0, len(metricLabels))
	for m := Pellets; m <= LeftBias; m++ {
		out = append(out, m)
	}
	return out
}

func (m Metric) String() string {
	if s, ok := metricLabels[m]; ok {
		return s
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(b []byte) error {
	v, err := ParseMetric(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMetric accepts the metric labels case-insensitively, plus
// "poke bias (correct %)" as an alias of correct pokes (%).
func ParseMetric(s string) (Metric, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "poke bias (correct %)" {
		return CorrectPercent, nil
	}
	for m, label := range metricLabels {
		if label == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

// Required returns the columns a metric reads.
func (m Metric) Required() []string {
	switch m {
	case Pellets, Intervals:
		return []string{record.ColPellets}
	case RetrievalTime:
		return []string{record.ColRetrievalTime}
	case CorrectPokes, Errors, CorrectPercent, ErrorPercent, CorrectMinusError:
		return []string{record.ColActivePoke, record.ColLeftPokes, record.ColRightPokes}
	default:
		return []string{record.ColLeftPokes, record.ColRightPokes}
	}
}

// Alignment selects how bins are anchored in time.
type Alignment int

const (
	// Calendar anchors bins to absolute wall-clock time.
	Calendar Alignment = iota
	// TimeOfDay anchors bins to an hour of the day and overlays files on a
	// synthetic common start date.
	TimeOfDay
	// Elapsed anchors bins to each file's own first event.
	Elapsed
)

func (a Alignment) String() string {
	switch a {
	case Calendar:
		return "datetime"
	case TimeOfDay:
		return "time"
	case Elapsed:
		return "elapsed"
	default:
		return fmt.Sprintf("Alignment(%d)", int(a))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Alignment) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Alignment) UnmarshalText(b []byte) error {
	v, err := ParseAlignment(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAlignment accepts short names and the long descriptive labels.
func ParseAlignment(s string) (Alignment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "datetime", "calendar", "shared date & time":
		return Calendar, nil
	case "time", "time-of-day", "shared time":
		return TimeOfDay, nil
	case "elapsed", "elapsed time", "start":
		return Elapsed, nil
	}
	return 0, fmt.Errorf("unknown alignment %q", s)
}
