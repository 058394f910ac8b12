package plotdata

import (
	"time"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// Diagnostics tracks pellets, motor turns and battery voltage over time.
func Diagnostics(rec *record.Record, dr aggregate.DateRange) (*table.Table, error) {
	evs := events(rec, dr)
	if len(evs) == 0 {
		return nil, ErrNoData
	}
	times := make([]time.Time, len(evs))
	pellets := make([]float64, len(evs))
	motor := make([]float64, len(evs))
	battery := make([]float64, len(evs))
	for i, e := range evs {
		times[i] = e.Time
		pellets[i], motor[i], battery[i] = e.Pellets, e.MotorTurns, e.BatteryVoltage
	}
	out := table.NewTimeTable("Diagnostics", IndexTime, times)
	out.MustAddColumn("Pellets", pellets)
	out.MustAddColumn("Motor Turns", motor)
	out.MustAddColumn("Battery (V)", battery)
	return out, nil
}
