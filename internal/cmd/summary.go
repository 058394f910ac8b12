package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/filelock"
	"github.com/harrison/fedviz/internal/plotdata"
	"github.com/harrison/fedviz/internal/report"
)

// NewSummaryCommand creates the 'fedviz summary' command
func NewSummaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <file-or-dir>...",
		Short: "Summary statistics per file",
		Long: `Compute per-file statistics (pellets, meals, pokes, accuracy, battery,
motor turns) with day and night variants, plus the Average and STD across
files.

With --report the statistics are written as a Markdown report, or HTML when
the value is "html".`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSummary,
	}
	cmd.Flags().String("report", "", "Write a report instead of a table: markdown or html")
	cmd.Flags().Float64("motor-threshold", 10, "Motor turns counted as a difficult dispense")
	return cmd
}

func runSummary(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	recs, err := env.loadRecords(cmd, args)
	if err != nil {
		return err
	}

	cfg := plotdata.SummaryFrom(env.settings)
	cfg.MotorTurnsThreshold, _ = cmd.Flags().GetFloat64("motor-threshold")
	t, err := plotdata.Summary(recs, cfg)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}

	kind, _ := cmd.Flags().GetString("report")
	if kind == "" {
		return env.writeTables(cmd, t)
	}
	if kind != "markdown" && kind != "html" {
		return fmt.Errorf("unknown report kind %q, must be markdown or html", kind)
	}

	rep := report.Summary(recs, t, env.settings, time.Now())
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return rep.Write(env.stdout, kind == "html")
	}
	if err := filelock.WriteWith(output, func(w io.Writer) error {
		return rep.Write(w, kind == "html")
	}); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	env.log.LogInfo(fmt.Sprintf("wrote %s", output))
	return nil
}
