package record

import (
	"math"
	"strconv"
	"strings"
)

// ModeUnknown is reported when no ratio or session-type column exists.
const ModeUnknown = "Unknown"

// ModePR is the progressive-ratio mode.
const ModePR = "PR"

// Derive computes every derived column of events in place. columns lists the
// canonical and extra columns present in the source; derivations whose inputs
// are absent leave NaN or Unknown. Events must already be time ordered.
func Derive(events []Event, columns []string) {
	if len(events) == 0 {
		return
	}
	has := make(map[string]bool, len(columns))
	for _, c := range columns {
		has[c] = true
	}

	start := events[0].Time
	for i := range events {
		events[i].Elapsed = events[i].Time.Sub(start)
	}

	deriveBinaryPellets(events, has[ColPellets])
	if has[ColPellets] {
		reassignEvents(events)
	}
	deriveIntervals(events, has[ColConcat])
	deriveBinaryPokes(events, has[ColLeftPokes], has[ColRightPokes])
	deriveCorrectness(events, has[ColActivePoke] && has[ColLeftPokes] && has[ColRightPokes])
	if has[ColRetrievalTime] {
		fixRetrievalTime(events)
	}
}

// deriveBinaryPellets takes the first difference of the cumulative pellet
// count. Row 0 is 0 so it never reads as a pellet.
func deriveBinaryPellets(events []Event, present bool) {
	for i := range events {
		switch {
		case !present:
			events[i].BinaryPellets = math.NaN()
		case i == 0:
			events[i].BinaryPellets = 0
		default:
			events[i].BinaryPellets = events[i].Pellets - events[i-1].Pellets
		}
	}
}

// reassignEvents relabels rows from the pellet delta, correcting firmware that
// logs the wrong event type.
func reassignEvents(events []Event) {
	for i := range events {
		v := events[i].BinaryPellets
		if v != 0 && !math.IsNaN(v) {
			events[i].Type = EventPellet
		} else {
			events[i].Type = EventPoke
		}
	}
}

// deriveIntervals sets minutes since the previous pellet on every pellet row
// after the first. For concatenated logs the first interval of each later
// component spans the stitch and is discarded.
func deriveIntervals(events []Event, concatenated bool) {
	last := -1
	for i := range events {
		events[i].Interval = math.NaN()
		if events[i].BinaryPellets != 1 {
			continue
		}
		if last >= 0 {
			events[i].Interval = events[i].Time.Sub(events[last].Time).Minutes()
		}
		last = i
	}
	if !concatenated {
		return
	}
	seen := make(map[int]bool)
	for i := range events {
		if math.IsNaN(events[i].Interval) {
			continue
		}
		c := events[i].ConcatIndex
		if seen[c] {
			continue
		}
		seen[c] = true
		if c > 0 {
			events[i].Interval = math.NaN()
		}
	}
}

// deriveBinaryPokes differences the cumulative poke counters. Row 0 keeps the
// counter's own value.
func deriveBinaryPokes(events []Event, left, right bool) {
	for i := range events {
		events[i].BinaryLeft = math.NaN()
		events[i].BinaryRight = math.NaN()
		if left {
			events[i].BinaryLeft = events[i].LeftPokes
			if i > 0 {
				events[i].BinaryLeft -= events[i-1].LeftPokes
			}
		}
		if right {
			events[i].BinaryRight = events[i].RightPokes
			if i > 0 {
				events[i].BinaryRight -= events[i-1].RightPokes
			}
		}
	}
}

// deriveCorrectness classifies poke rows: correct iff the side that
// incremented is the active side.
func deriveCorrectness(events []Event, present bool) {
	for i := range events {
		e := &events[i]
		e.Correct = Unknown
		if !present || e.Type != EventPoke {
			continue
		}
		if math.IsNaN(e.BinaryLeft) && math.IsNaN(e.BinaryRight) {
			continue
		}
		switch {
		case e.ActivePoke == "Left" && e.BinaryLeft == 1:
			e.Correct = Correct
		case e.ActivePoke == "Right" && e.BinaryRight != 0 && !math.IsNaN(e.BinaryRight):
			e.Correct = Correct
		default:
			e.Correct = Incorrect
		}
	}
}

// fixRetrievalTime sets blank retrieval times on pellet rows to 0; the device
// logs sub-second retrievals as empty cells.
func fixRetrievalTime(events []Event) {
	for i := range events {
		if events[i].Type == EventPellet && math.IsNaN(events[i].RetrievalTime) {
			events[i].RetrievalTime = 0
		}
	}
}

// DetermineMode derives the recording mode from a ratio or session-type
// column. Equal integers give "FR<n>", varying integers give "PR", a first
// value mentioning PR gives "PR", and anything else is the first value.
func DetermineMode(values []string) string {
	vals := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return ModeUnknown
	}

	ints := make([]int64, 0, len(vals))
	for _, v := range vals {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			ints = nil
			break
		}
		ints = append(ints, n)
	}
	if ints != nil {
		for _, n := range ints[1:] {
			if n != ints[0] {
				return ModePR
			}
		}
		return "FR" + strconv.FormatInt(ints[0], 10)
	}

	if strings.Contains(vals[0], ModePR) {
		return ModePR
	}
	return vals[0]
}
