package plotdata

import (
	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
	"github.com/harrison/fedviz/internal/table"
)

// Average lays out a group average: each member file, then each group mean
// followed by its "<group> SEM" or "<group> STD" column when a band was
// requested. Elapsed results are indexed by hours, the rest by time.
func Average(res *average.Result) *table.Table {
	name := "Average " + res.Metric.String()
	var out *table.Table
	if res.Alignment == aggregate.Elapsed {
		out = table.NewNumberTable(name, IndexElapsedHours, res.Hours())
	} else {
		out = table.NewTimeTable(name, IndexTime, res.Index)
	}
	for _, s := range res.Files {
		out.MustAddColumn(s.Name, s.Values)
	}
	for _, g := range res.Groups {
		out.MustAddColumn(g.Label, g.Mean)
		if g.Error != nil {
			out.MustAddColumn(g.Label+" "+res.ErrorKind.String(), g.Error)
		}
	}
	return out
}
