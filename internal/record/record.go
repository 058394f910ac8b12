// Package record loads pellet/poke device event logs into immutable Records.
//
// A Record is built in one pass by Load: raw columns are reconciled against the
// canonical device header set, rows are ordered by timestamp, and derived
// columns (elapsed time, binary pellet and poke deltas, interpellet intervals,
// poke correctness, retrieval-time cleanup) are computed before the Record is
// returned. Afterwards only group membership may change.
package record

import (
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Canonical column names written by the device firmware.
const (
	ColDeviceNumber   = "Device_Number"
	ColBatteryVoltage = "Battery_Voltage"
	ColMotorTurns     = "Motor_Turns"
	ColSessionType    = "Session_Type"
	ColEvent          = "Event"
	ColActivePoke     = "Active_Poke"
	ColLeftPokes      = "Left_Poke_Count"
	ColRightPokes     = "Right_Poke_Count"
	ColPellets        = "Pellet_Count"
	ColRetrievalTime  = "Retrieval_Time"

	// ColTimestamp is the mandatory index column.
	ColTimestamp = "MM:DD:YYYY hh:mm:ss"

	// ColPokeTime and ColConcat are recognised by exact name only.
	ColPokeTime = "Poke_Time"
	ColConcat   = "Concat_#"
	ColMode     = "Mode"
)

// CanonicalColumns lists the ten device columns in file order.
var CanonicalColumns = []string{
	ColDeviceNumber,
	ColBatteryVoltage,
	ColMotorTurns,
	ColSessionType,
	ColEvent,
	ColActivePoke,
	ColLeftPokes,
	ColRightPokes,
	ColPellets,
	ColRetrievalTime,
}

// MatchThreshold is the minimum header similarity for a column to be renamed
// to a canonical name.
const MatchThreshold = 0.85

// Event labels after reassignment.
const (
	EventPellet = "Pellet"
	EventPoke   = "Poke"
)

// Correctness classifies a poke against the active side.
type Correctness int8

const (
	// Unknown marks non-poke rows and rows from firmware without side data.
	Unknown Correctness = iota
	Correct
	Incorrect
)

func (c Correctness) String() string {
	switch c {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "unknown"
	}
}

// Float returns 1, 0 or NaN.
func (c Correctness) Float() float64 {
	switch c {
	case Correct:
		return 1
	case Incorrect:
		return 0
	default:
		return math.NaN()
	}
}

// Event is one row of a device log. Numeric fields are NaN when the column is
// absent or the cell is not numeric.
type Event struct {
	Time           time.Time
	DeviceNumber   float64
	BatteryVoltage float64
	MotorTurns     float64
	SessionType    string
	Type           string
	ActivePoke     string
	LeftPokes      float64
	RightPokes     float64
	Pellets        float64
	RetrievalTime  float64
	PokeTime       float64
	// ConcatIndex is the originating component of a concatenated log, or -1.
	ConcatIndex int

	Elapsed       time.Duration
	BinaryPellets float64
	BinaryLeft    float64
	BinaryRight   float64
	// Interval is minutes since the previous pellet; NaN unless this row is
	// the second or later pellet.
	Interval float64
	Correct  Correctness
}

// IsPellet reports whether the row's binary pellet delta is 1.
func (e Event) IsPellet() bool {
	return e.BinaryPellets == 1
}

// Record is one loaded device file.
type Record struct {
	ID        string
	Path      string
	Basename  string
	Filename  string
	Extension string

	// Columns holds the canonical columns present in the file.
	Columns []string
	// Missing holds canonical columns absent from the file.
	Missing []string
	// Foreign holds headers that matched no canonical name.
	Foreign []string
	// ForeignData holds raw cell text for foreign columns, aligned to Events.
	ForeignData map[string][]string

	Events   []Event
	Mode     string
	Start    time.Time
	End      time.Time
	Duration time.Duration

	groups *Membership
}

// HasColumn reports whether a canonical (or recognised extra) column was present.
func (r *Record) HasColumn(name string) bool {
	for _, c := range r.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of events.
func (r *Record) Len() int {
	return len(r.Events)
}

// Groups returns the mutable group membership of the record.
func (r *Record) Groups() *Membership {
	if r.groups == nil {
		r.groups = NewMembership()
	}
	return r.groups
}

// SetGroups replaces the membership set, used when restoring a session.
func (r *Record) SetGroups(m *Membership) {
	r.groups = m
}

// Warning returns the non-fatal missing-columns warning, or nil.
func (r *Record) Warning() *MissingColumnsWarning {
	if len(r.Missing) == 0 {
		return nil
	}
	return &MissingColumnsWarning{Path: r.Path, Columns: append([]string(nil), r.Missing...)}
}

// Pellets returns the rows whose binary pellet delta is 1, in order.
func (r *Record) Pellets() []Event {
	out := make([]Event, 0)
	for _, e := range r.Events {
		if e.IsPellet() {
			out = append(out, e)
		}
	}
	return out
}

// Slice returns the events with from <= Time <= to. Zero bounds are open.
func (r *Record) Slice(from, to time.Time) []Event {
	lo := 0
	if !from.IsZero() {
		lo = sort.Search(len(r.Events), func(i int) bool { return !r.Events[i].Time.Before(from) })
	}
	hi := len(r.Events)
	if !to.IsZero() {
		hi = sort.Search(len(r.Events), func(i int) bool { return r.Events[i].Time.After(to) })
	}
	if lo >= hi {
		return nil
	}
	return r.Events[lo:hi]
}

// Membership is the set of group labels assigned to a record. It is safe for
// concurrent use and preserves insertion order.
type Membership struct {
	mu     sync.RWMutex
	labels []string
}

// NewMembership creates a membership holding the given labels.
func NewMembership(labels ...string) *Membership {
	m := &Membership{}
	for _, l := range labels {
		m.Add(l)
	}
	return m
}

// Add inserts a label; duplicates and empty labels are ignored.
func (m *Membership) Add(label string) {
	if label == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.labels {
		if l == label {
			return
		}
	}
	m.labels = append(m.labels, label)
}

// Remove deletes a label if present.
func (m *Membership) Remove(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.labels {
		if l == label {
			m.labels = append(m.labels[:i], m.labels[i+1:]...)
			return
		}
	}
}

// Has reports whether label is assigned.
func (m *Membership) Has(label string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.labels {
		if l == label {
			return true
		}
	}
	return false
}

// Labels returns a copy of the assigned labels.
func (m *Membership) Labels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.labels...)
}

// Clear removes every label.
func (m *Membership) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels = nil
}

// AllGroups returns the distinct labels used across records, sorted.
func AllGroups(records []*Record) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range records {
		for _, l := range r.Groups().Labels() {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	sort.Strings(out)
	return out
}

// InGroup returns the records that carry label, each record once. Records
// that share a basename but were loaded from different paths are distinct.
func InGroup(records []*Record, label string) []*Record {
	seen := make(map[string]bool)
	out := make([]*Record, 0)
	for _, r := range records {
		if !r.Groups().Has(label) || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// New builds a Record from events whose raw fields are set, sorting them by
// time and computing every derived column. columns lists the canonical and
// extra columns the events carry.
func New(path string, columns []string, events []Event, mode string) (*Record, error) {
	if len(events) == 0 {
		return nil, &LoadError{Path: path, Reason: "no events"}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	Derive(events, columns)
	rec := assemble(path, columns, events, mode)
	rec.Missing = make([]string, 0)
	for _, c := range CanonicalColumns {
		if !rec.HasColumn(c) {
			rec.Missing = append(rec.Missing, c)
		}
	}
	return rec, nil
}

func assemble(path string, columns []string, events []Event, mode string) *Record {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return &Record{
		ID:          uuid.NewString(),
		Path:        path,
		Basename:    base,
		Filename:    strings.TrimSuffix(base, ext),
		Extension:   strings.ToLower(ext),
		Columns:     columns,
		ForeignData: map[string][]string{},
		Events:      events,
		Mode:        mode,
		Start:       events[0].Time,
		End:         events[len(events)-1].Time,
		Duration:    events[len(events)-1].Time.Sub(events[0].Time),
		groups:      NewMembership(),
	}
}
