package plotdata

import (
	"errors"
	"math"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
	"github.com/harrison/fedviz/internal/breakpoint"
	"github.com/harrison/fedviz/internal/nanstat"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// breakpointValue detects one record's breakpoint. Records the detector
// cannot score are NaN; an ambiguous active poke is returned as an error.
func breakpointValue(rec *record.Record, cfg breakpoint.Config) (float64, error) {
	res, err := breakpoint.Detect(rec, cfg)
	if err != nil {
		var amb *breakpoint.AmbiguousActivePokeError
		if errors.As(err, &amb) {
			return 0, err
		}
		return math.NaN(), nil
	}
	return res.Value, nil
}

// Breakpoints reports the breakpoint of each record in one row labelled by
// the style.
func Breakpoints(records []*record.Record, cfg breakpoint.Config) (*table.Table, error) {
	records = unique(records)
	if len(records) == 0 {
		return nil, aggregate.ErrNoRecords
	}
	out := table.NewLabelTable("Breakpoint", "Style", []string{cfg.Style.Label()})
	for _, r := range records {
		v, err := breakpointValue(r, cfg)
		if err != nil {
			return nil, err
		}
		out.MustAddColumn(r.Basename, []float64{v})
	}
	return out, nil
}

// GroupBreakpoints adds, after each member file, the group mean and an
// optional error column.
func GroupBreakpoints(records []*record.Record, groups []string, cfg breakpoint.Config, errKind average.ErrorKind) (*table.Table, error) {
	members, err := groupMembers(records, groups)
	if err != nil {
		return nil, err
	}
	out := table.NewLabelTable("Breakpoint", "Style", []string{cfg.Style.Label()})
	values := make(map[string]float64)
	for _, rs := range members {
		for _, r := range rs {
			if _, ok := values[r.ID]; ok {
				continue
			}
			v, err := breakpointValue(r, cfg)
			if err != nil {
				return nil, err
			}
			values[r.ID] = v
			addFileColumn(out, r.Basename, []float64{v})
		}
	}
	for i, g := range groups {
		vals := make([]float64, 0, len(members[i]))
		for _, r := range members[i] {
			vals = append(vals, values[r.ID])
		}
		out.MustAddColumn(g, []float64{nanstat.Mean(vals)})
		if e := errorColumn(vals, errKind); e != nil {
			out.MustAddColumn(g+" "+errKind.String(), e)
		}
	}
	return out, nil
}
