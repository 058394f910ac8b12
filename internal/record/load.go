package record

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/harrison/fedviz/internal/similarity"
)

// timestampLayouts are tried in order for the index column.
var timestampLayouts = []string{
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04:05",
	"1/2/06 15:04",
	"1:2:2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// modeColumns are inspected in order; the last one present wins.
var modeColumns = []string{"FR_Ratio", " FR_Ratio", ColMode, ColSessionType}

// extraColumns are matched by exact name and are not reported as foreign.
var extraColumns = []string{ColPokeTime, ColConcat}

type rawTable struct {
	header []string
	rows   [][]string
	// serialDates is set for spreadsheets read with raw cell values, where
	// timestamps arrive as Excel serial numbers.
	serialDates bool
}

// Load reads one .csv or .xlsx device file and returns a fully derived Record.
// Failures are reported as *LoadError.
func Load(path string) (*Record, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	var tbl *rawTable
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, &LoadError{Path: abs, Reason: "open file", Err: err}
		}
		defer f.Close()
		tbl, err = readCSV(f)
		if err != nil {
			return nil, &LoadError{Path: abs, Reason: "read csv", Err: err}
		}
	case ".xlsx":
		tbl, err = readXLSX(path)
		if err != nil {
			return nil, &LoadError{Path: abs, Reason: "read xlsx", Err: err}
		}
	default:
		return nil, &LoadError{Path: abs, Reason: fmt.Sprintf("extension %q", ext), Err: ErrUnsupportedFormat}
	}

	return build(abs, tbl)
}

// LoadReader parses CSV content as if it were read from path.
func LoadReader(path string, r io.Reader) (*Record, error) {
	tbl, err := readCSV(r)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "read csv", Err: err}
	}
	return build(path, tbl)
}

// FromRows builds a Record from an already tokenised header and rows.
func FromRows(path string, header []string, rows [][]string) (*Record, error) {
	return build(path, &rawTable{header: header, rows: rows})
}

func readCSV(r io.Reader) (*rawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	all, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errors.New("file is empty")
	}
	return &rawTable{header: all[0], rows: all[1:]}, nil
}

func readXLSX(path string) (*rawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("sheet is empty")
	}
	return &rawTable{header: rows[0], rows: rows[1:], serialDates: true}, nil
}

// columnMap records where each known column sits in the raw header.
type columnMap struct {
	timestamp int
	index     map[string]int
	foreign   []string
}

func (m *columnMap) has(name string) bool {
	_, ok := m.index[name]
	return ok
}

// reconcile resolves raw headers. Exact names claim their column first, then
// remaining headers are fuzzy-matched to the best unclaimed canonical name.
// Anything left over is foreign.
func reconcile(header []string) (*columnMap, error) {
	m := &columnMap{timestamp: -1, index: make(map[string]int)}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimPrefix(h, "\ufeff")
	}

	claimed := make([]bool, len(names))
	for i, h := range names {
		if h == ColTimestamp {
			m.timestamp, claimed[i] = i, true
			break
		}
	}
	if m.timestamp < 0 {
		best := 0.0
		for i, h := range names {
			if score := similarity.Ratio(h, ColTimestamp); score > MatchThreshold && score > best {
				m.timestamp, best = i, score
			}
		}
		if m.timestamp < 0 {
			return nil, ErrMissingTimestamp
		}
		claimed[m.timestamp] = true
	}

	known := append(append([]string(nil), CanonicalColumns...), extraColumns...)
	for i, h := range names {
		if claimed[i] {
			continue
		}
		for _, k := range known {
			if h == k && !m.has(k) {
				m.index[k], claimed[i] = i, true
				break
			}
		}
	}

	for i, h := range names {
		if claimed[i] {
			continue
		}
		open := make([]string, 0, len(CanonicalColumns))
		for _, c := range CanonicalColumns {
			if !m.has(c) {
				open = append(open, c)
			}
		}
		if name, _, ok := similarity.BestMatch(h, open, MatchThreshold); ok {
			m.index[name], claimed[i] = i, true
			continue
		}
		// Duplicate headers get a numeric suffix so each keeps its data.
		name := h
		for n := 1; m.has(name); n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		m.foreign = append(m.foreign, name)
		m.index[name] = i
	}
	return m, nil
}

func parseTimestamp(cell string, serial bool) (time.Time, error) {
	s := strings.TrimSpace(cell)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			t, err := excelize.ExcelDateToTime(v, false)
			if err == nil {
				return t.Round(time.Second), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", cell)
}

// parseNumber coerces a cell to float64, yielding NaN for blanks and garbage.
func parseNumber(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func build(path string, tbl *rawTable) (*Record, error) {
	cols, err := reconcile(tbl.header)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "reconcile columns", Err: err}
	}

	type row struct {
		t     time.Time
		cells []string
	}
	rows := make([]row, 0, len(tbl.rows))
	for i, cells := range tbl.rows {
		if blank(cells) {
			continue
		}
		var ts string
		if cols.timestamp < len(cells) {
			ts = cells[cols.timestamp]
		}
		t, err := parseTimestamp(ts, tbl.serialDates)
		if err != nil {
			return nil, &LoadError{Path: path, Reason: fmt.Sprintf("row %d", i+2), Err: err}
		}
		rows = append(rows, row{t: t, cells: cells})
	}
	if len(rows) == 0 {
		return nil, &LoadError{Path: path, Reason: "no events"}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })

	cell := func(cells []string, name string) (string, bool) {
		idx, ok := cols.index[name]
		if !ok {
			return "", false
		}
		if idx >= len(cells) {
			return "", true
		}
		return strings.TrimSpace(cells[idx]), true
	}
	num := func(cells []string, name string) float64 {
		s, ok := cell(cells, name)
		if !ok {
			return math.NaN()
		}
		return parseNumber(s)
	}

	events := make([]Event, len(rows))
	foreign := make(map[string][]string, len(cols.foreign))
	for _, f := range cols.foreign {
		foreign[f] = make([]string, len(rows))
	}
	for i, r := range rows {
		e := Event{
			Time:           r.t,
			DeviceNumber:   num(r.cells, ColDeviceNumber),
			BatteryVoltage: num(r.cells, ColBatteryVoltage),
			MotorTurns:     num(r.cells, ColMotorTurns),
			LeftPokes:      num(r.cells, ColLeftPokes),
			RightPokes:     num(r.cells, ColRightPokes),
			Pellets:        num(r.cells, ColPellets),
			RetrievalTime:  num(r.cells, ColRetrievalTime),
			PokeTime:       num(r.cells, ColPokeTime),
			ConcatIndex:    -1,
		}
		e.SessionType, _ = cell(r.cells, ColSessionType)
		e.Type, _ = cell(r.cells, ColEvent)
		e.ActivePoke, _ = cell(r.cells, ColActivePoke)
		if v := num(r.cells, ColConcat); !math.IsNaN(v) {
			e.ConcatIndex = int(v)
		}
		events[i] = e
		for _, f := range cols.foreign {
			s, _ := cell(r.cells, f)
			foreign[f][i] = s
		}
	}

	present := make([]string, 0, len(CanonicalColumns)+len(extraColumns))
	missing := make([]string, 0)
	for _, c := range CanonicalColumns {
		if cols.has(c) {
			present = append(present, c)
		} else {
			missing = append(missing, c)
		}
	}
	for _, c := range extraColumns {
		if cols.has(c) {
			present = append(present, c)
		}
	}

	mode := ModeUnknown
	for _, name := range modeColumns {
		if !cols.has(name) {
			continue
		}
		values := make([]string, len(rows))
		for i, r := range rows {
			values[i], _ = cell(r.cells, name)
		}
		mode = DetermineMode(values)
	}

	Derive(events, present)
	rec := assemble(path, present, events, mode)
	rec.Missing = missing
	rec.Foreign = cols.foreign
	rec.ForeignData = foreign
	return rec, nil
}
