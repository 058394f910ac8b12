package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
	"github.com/harrison/fedviz/internal/plotdata"
	"github.com/harrison/fedviz/internal/settings"
	"github.com/harrison/fedviz/internal/table"
)

// NewPelletsCommand creates the 'fedviz pellets' command
func NewPelletsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pellets <file-or-dir>...",
		Short: "Cumulative pellets or pellets per bin",
		Long: `Tabulate pellet retrieval over time. One file gives its own time axis;
several files are joined on calendar time, or on elapsed hours with
--elapsed. --frequency counts pellets per --bins instead of the running
total.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runPellets,
	}
	cmd.Flags().Bool("frequency", false, "Pellets per bin instead of cumulative (default from pellet_values)")
	cmd.Flags().String("bins", "", "Bin width for --frequency, e.g. 15m or \"2 hours\" (default from pellet_bins)")
	cmd.Flags().Bool("elapsed", false, "Align files on elapsed hours (default from pellet_align)")
	return cmd
}

func runPellets(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	recs, err := env.loadRecords(cmd, args)
	if err != nil {
		return err
	}

	st := env.settings
	frequency := st.PelletValues == settings.StyleFrequency
	if cmd.Flags().Changed("frequency") {
		frequency, _ = cmd.Flags().GetBool("frequency")
	}
	elapsed := st.PelletAlign
	if cmd.Flags().Changed("elapsed") {
		elapsed, _ = cmd.Flags().GetBool("elapsed")
	}
	bin, err := binFlag(cmd, "bins", st.PelletBins)
	if err != nil {
		return err
	}

	dr := st.DateRange()
	var t *table.Table
	switch {
	case len(recs) == 1 && frequency:
		t, err = plotdata.PelletFrequency(recs[0], bin.Std(), dr)
	case len(recs) == 1:
		t, err = plotdata.PelletCount(recs[0], dr)
	case frequency:
		t, err = plotdata.PelletFrequencies(cmd.Context(), recs, bin.Std(), dr, elapsed)
	default:
		t, err = plotdata.PelletCounts(recs, dr, elapsed)
	}
	if err != nil {
		return fmt.Errorf("pellets: %w", err)
	}
	return env.writeTables(cmd, t)
}

// binFlag parses a bin width flag, falling back to def when unset.
func binFlag(cmd *cobra.Command, name string, def settings.Duration) (settings.Duration, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return def, nil
	}
	var d settings.Duration
	if err := d.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("--%s must be positive", name)
	}
	return d, nil
}

// metricFlag parses --metric, falling back to def when unset.
func metricFlag(cmd *cobra.Command, def aggregate.Metric) (aggregate.Metric, error) {
	raw, _ := cmd.Flags().GetString("metric")
	if raw == "" {
		return def, nil
	}
	return aggregate.ParseMetric(raw)
}

// errorFlag parses --error, falling back to def when unset.
func errorFlag(cmd *cobra.Command, def average.ErrorKind) (average.ErrorKind, error) {
	raw, _ := cmd.Flags().GetString("error")
	if raw == "" {
		return def, nil
	}
	return average.ParseErrorKind(raw)
}
