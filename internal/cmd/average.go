package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/aggregate"
	"github.com/harrison/fedviz/internal/average"
	"github.com/harrison/fedviz/internal/display"
	"github.com/harrison/fedviz/internal/plotdata"
)

// NewAverageCommand creates the 'fedviz average' command
func NewAverageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "average <file-or-dir>...",
		Short: "Group mean of a metric over time",
		Long: `Bin a metric for every member of each group and average the members per
bin with an SEM or STD band. Calendar alignment needs every member to
share a time window; time-of-day and elapsed alignment overlay files that
were recorded on different days.

Metrics: pellets, retrieval time, interpellet intervals, correct pokes,
errors, correct pokes (%), errors (%), poke bias (correct - error),
poke bias (left - right), left pokes, right pokes, poke bias (left %).`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAverage,
	}
	cmd.Flags().String("metric", "pellets", "Metric to average")
	cmd.Flags().String("groups", "", "Comma-separated groups (default: every group)")
	cmd.Flags().String("method", "", "Alignment: datetime, time, elapsed (default from average_method)")
	cmd.Flags().String("bins", "", "Bin width (default from average_bins)")
	cmd.Flags().String("error", "", "Error band: None, SEM, STD (default from average_error)")
	return cmd
}

func runAverage(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	st := env.settings
	metric, err := metricFlag(cmd, aggregate.Pellets)
	if err != nil {
		return err
	}
	cfg := st.Average(metric)
	if raw, _ := cmd.Flags().GetString("method"); raw != "" {
		if cfg.Alignment, err = aggregate.ParseAlignment(raw); err != nil {
			return err
		}
	}
	bin, err := binFlag(cmd, "bins", st.AverageBins)
	if err != nil {
		return err
	}
	cfg.BinWidth = bin.Std()
	if cfg.Error, err = errorFlag(cmd, cfg.Error); err != nil {
		return err
	}

	recs, err := env.loadRecords(cmd, args)
	if err != nil {
		return err
	}

	res, err := average.Average(cmd.Context(), recs, selectedGroups(cmd, recs), cfg)
	if err != nil {
		var overlap *average.NoOverlapError
		if errors.As(err, &overlap) {
			display.Warning{
				Title:      "Records do not overlap in time",
				Message:    err.Error(),
				Suggestion: "Use --method time or --method elapsed",
			}.Display(env.stderr)
		}
		return fmt.Errorf("average: %w", err)
	}
	return env.writeTables(cmd, plotdata.Average(res))
}
