// Package concat stitches consecutive recordings of one device into a single
// record with continuous cumulative counters.
package concat

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/harrison/fedviz/internal/filelock"
	"github.com/harrison/fedviz/internal/record"
)

// CannotConcatenateError reports two inputs whose time windows overlap.
type CannotConcatenateError struct {
	Earlier    string
	Later      string
	EarlierEnd time.Time
	LaterStart time.Time
}

func (e *CannotConcatenateError) Error() string {
	return fmt.Sprintf("cannot concatenate: %s starts at %s, before %s ends at %s",
		e.Later, e.LaterStart.Format(time.DateTime), e.Earlier, e.EarlierEnd.Format(time.DateTime))
}

// counters are offset by the running maximum of earlier components.
var counters = []string{record.ColPellets, record.ColLeftPokes, record.ColRightPokes}

// Sorted returns the records ordered by start time, or an error when any
// record starts at or before the end of the previous one.
func Sorted(records []*record.Record) ([]*record.Record, error) {
	out := append([]*record.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	for i := 1; i < len(out); i++ {
		if !out[i].Start.After(out[i-1].End) {
			return nil, &CannotConcatenateError{
				Earlier:    out[i-1].Basename,
				Later:      out[i].Basename,
				EarlierEnd: out[i-1].End,
				LaterStart: out[i].Start,
			}
		}
	}
	return out, nil
}

// Concat builds a new record at path from non-overlapping records. Only
// columns every input has are kept; each row is tagged with the position of
// its source in start-time order. The inputs are not modified.
func Concat(records []*record.Record, path string) (*record.Record, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("nothing to concatenate")
	}
	ordered, err := Sorted(records)
	if err != nil {
		return nil, err
	}

	columns := sharedColumns(ordered)
	keep := make(map[string]bool, len(columns))
	for _, c := range columns {
		keep[c] = true
	}
	columns = append(columns, record.ColConcat)

	offsets := make(map[string]float64, len(counters))
	total := 0
	for _, r := range ordered {
		total += r.Len()
	}
	events := make([]record.Event, 0, total)
	for i, r := range ordered {
		maxes := make(map[string]float64, len(counters))
		for _, src := range r.Events {
			e := rawCopy(src, keep)
			e.ConcatIndex = i
			for _, c := range counters {
				if !keep[c] {
					continue
				}
				v := counter(&e, c)
				*v += offsets[c]
				if m, ok := maxes[c]; !math.IsNaN(*v) && (!ok || *v > m) {
					maxes[c] = *v
				}
			}
			events = append(events, e)
		}
		for c, m := range maxes {
			offsets[c] = m
		}
	}

	mode := ordered[0].Mode
	for _, r := range ordered[1:] {
		if r.Mode != mode {
			mode = record.ModeUnknown
			break
		}
	}
	return record.New(path, columns, events, mode)
}

// Save concatenates records and writes the result to path as CSV under an
// exclusive file lock.
func Save(records []*record.Record, path string) (*record.Record, error) {
	rec, err := Concat(records, path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := rec.WriteCSV(&buf); err != nil {
		return nil, err
	}
	if err := filelock.LockAndWrite(path, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return rec, nil
}

func sharedColumns(records []*record.Record) []string {
	out := make([]string, 0, len(record.CanonicalColumns)+1)
	for _, c := range append(append([]string(nil), record.CanonicalColumns...), record.ColPokeTime) {
		all := true
		for _, r := range records {
			if !r.HasColumn(c) {
				all = false
				break
			}
		}
		if all {
			out = append(out, c)
		}
	}
	return out
}

// rawCopy keeps the raw fields of kept columns; derived fields are recomputed.
func rawCopy(src record.Event, keep map[string]bool) record.Event {
	nan := math.NaN()
	e := record.Event{
		Time:           src.Time,
		DeviceNumber:   nan,
		BatteryVoltage: nan,
		MotorTurns:     nan,
		LeftPokes:      nan,
		RightPokes:     nan,
		Pellets:        nan,
		RetrievalTime:  nan,
		PokeTime:       nan,
	}
	if keep[record.ColDeviceNumber] {
		e.DeviceNumber = src.DeviceNumber
	}
	if keep[record.ColBatteryVoltage] {
		e.BatteryVoltage = src.BatteryVoltage
	}
	if keep[record.ColMotorTurns] {
		e.MotorTurns = src.MotorTurns
	}
	if keep[record.ColSessionType] {
		e.SessionType = src.SessionType
	}
	if keep[record.ColEvent] {
		e.Type = src.Type
	}
	if keep[record.ColActivePoke] {
		e.ActivePoke = src.ActivePoke
	}
	if keep[record.ColLeftPokes] {
		e.LeftPokes = src.LeftPokes
	}
	if keep[record.ColRightPokes] {
		e.RightPokes = src.RightPokes
	}
	if keep[record.ColPellets] {
		e.Pellets = src.Pellets
	}
	if keep[record.ColRetrievalTime] {
		e.RetrievalTime = src.RetrievalTime
	}
	if keep[record.ColPokeTime] {
		e.PokeTime = src.PokeTime
	}
	return e
}

func counter(e *record.Event, col string) *float64 {
	switch col {
	case record.ColLeftPokes:
		return &e.LeftPokes
	case record.ColRightPokes:
		return &e.RightPokes
	default:
		return &e.Pellets
	}
}
