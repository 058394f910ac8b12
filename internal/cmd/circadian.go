package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/plotdata"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// NewDayNightCommand creates the 'fedviz daynight' command
func NewDayNightCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daynight <file-or-dir>...",
		Short: "Day versus night values per file and group",
		Long: `Split each file at lights on and lights off and report the mean metric
per day and per night period. Group columns average the members' rates,
normalized by the fraction of each period actually recorded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDayNight,
	}
	addCircadianFlags(cmd)
	return cmd
}

// NewChronogramCommand creates the 'fedviz chronogram' command
func NewChronogramCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chronogram <file-or-dir>...",
		Short: "24-hour profile starting at lights on",
		Long: `Average a metric by hour of day across the recorded days. The line style
reports each file plus group means; the heatmap style has one row per
file and an Average row, with clock hours as columns.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runChronogram,
	}
	addCircadianFlags(cmd)
	cmd.Flags().String("style", "line", "Chronogram style: line or heatmap")
	return cmd
}

func addCircadianFlags(cmd *cobra.Command) {
	cmd.Flags().String("metric", "", "Metric (default from circ_value)")
	cmd.Flags().String("groups", "", "Comma-separated groups (default: every group)")
	cmd.Flags().String("error", "", "Error band: None, SEM, STD (default from circ_error)")
}

func circadianSetup(cmd *cobra.Command, args []string) (*runEnv, []*record.Record, plotdata.CircadianConfig, error) {
	var cfg plotdata.CircadianConfig
	env, err := setup(cmd)
	if err != nil {
		return nil, nil, cfg, err
	}
	cfg = plotdata.CircadianFrom(env.settings)
	if cfg.Metric, err = metricFlag(cmd, cfg.Metric); err != nil {
		env.Close()
		return nil, nil, cfg, err
	}
	if cfg.Error, err = errorFlag(cmd, cfg.Error); err != nil {
		env.Close()
		return nil, nil, cfg, err
	}
	recs, err := env.loadRecords(cmd, args)
	if err != nil {
		env.Close()
		return nil, nil, cfg, err
	}
	return env, recs, cfg, nil
}

func runDayNight(cmd *cobra.Command, args []string) error {
	env, recs, cfg, err := circadianSetup(cmd, args)
	if err != nil {
		return err
	}
	defer env.Close()

	t, err := plotdata.DayNight(recs, selectedGroups(cmd, recs), cfg)
	if err != nil {
		return fmt.Errorf("daynight: %w", err)
	}
	return env.writeTables(cmd, t)
}

func runChronogram(cmd *cobra.Command, args []string) error {
	style, _ := cmd.Flags().GetString("style")
	if style != "line" && style != "heatmap" {
		return fmt.Errorf("unknown style %q, must be line or heatmap", style)
	}

	env, recs, cfg, err := circadianSetup(cmd, args)
	if err != nil {
		return err
	}
	defer env.Close()

	var t *table.Table
	if style == "heatmap" {
		t, err = plotdata.HeatmapChronogram(recs, cfg)
	} else {
		t, err = plotdata.LineChronogram(recs, selectedGroups(cmd, recs), cfg)
	}
	if err != nil {
		return fmt.Errorf("chronogram: %w", err)
	}
	return env.writeTables(cmd, t)
}
