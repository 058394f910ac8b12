package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// TimestampLayout is used when writing device logs back out.
const TimestampLayout = "01/02/2006 15:04:05"

// WriteCSV writes the record's raw columns in device order, followed by
// Poke_Time and Concat_# when present and a Mode column when the mode is
// known. Derived columns are not written; Load recomputes them.
func (r *Record) WriteCSV(w io.Writer) error {
	cols := make([]string, 0, len(r.Columns)+2)
	for _, c := range CanonicalColumns {
		if r.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	for _, c := range extraColumns {
		if r.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	withMode := r.Mode != "" && r.Mode != ModeUnknown && !r.HasColumn(ColSessionType)

	header := append([]string{ColTimestamp}, cols...)
	if withMode {
		header = append(header, ColMode)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	row := make([]string, len(header))
	for i, e := range r.Events {
		row[0] = e.Time.Format(TimestampLayout)
		for j, c := range cols {
			row[j+1] = e.field(c)
		}
		if withMode {
			row[len(row)-1] = r.Mode
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e Event) field(col string) string {
	switch col {
	case ColDeviceNumber:
		return formatNumber(e.DeviceNumber)
	case ColBatteryVoltage:
		return formatNumber(e.BatteryVoltage)
	case ColMotorTurns:
		return formatNumber(e.MotorTurns)
	case ColSessionType:
		return e.SessionType
	case ColEvent:
		return e.Type
	case ColActivePoke:
		return e.ActivePoke
	case ColLeftPokes:
		return formatNumber(e.LeftPokes)
	case ColRightPokes:
		return formatNumber(e.RightPokes)
	case ColPellets:
		return formatNumber(e.Pellets)
	case ColRetrievalTime:
		return formatNumber(e.RetrievalTime)
	case ColPokeTime:
		return formatNumber(e.PokeTime)
	case ColConcat:
		return strconv.Itoa(e.ConcatIndex)
	}
	return ""
}

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
