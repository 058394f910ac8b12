package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/breakpoint"
	"github.com/harrison/fedviz/internal/plotdata"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/table"
)

// NewPokesCommand creates the 'fedviz pokes' command
func NewPokesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pokes <file-or-dir>...",
		Short: "Poke counts or poke bias per file",
		Long: `Tabulate the selected poke series of each file, cumulative or binned.
With --bias, report the binned correct or left poke percentage instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runPokes,
	}
	cmd.Flags().Bool("frequency", false, "Pokes per bin instead of cumulative (default from poke_style)")
	cmd.Flags().String("bins", "", "Bin width (default from poke_bins)")
	cmd.Flags().Bool("bias", false, "Report poke bias instead of counts")
	cmd.Flags().String("metric", "", "Bias metric: correct % or left % (default from bias_style)")
	return cmd
}

// NewBreakpointCommand creates the 'fedviz breakpoint' command
func NewBreakpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breakpoint <file-or-dir>...",
		Short: "Progressive ratio breakpoints",
		Long: `Report the breakpoint of each progressive ratio file: the highest pellet
count or poke requirement reached before the first pause longer than
break_hours and break_mins. --by group adds group means.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBreakpoint,
	}
	cmd.Flags().String("by", "file", "Split: file or group")
	cmd.Flags().String("groups", "", "Comma-separated groups for --by group (default: every group)")
	cmd.Flags().String("style", "", "Breakpoint style: pellets or pokes (default from break_style)")
	cmd.Flags().String("error", "", "Error column for --by group: None, SEM, STD (default from break_error)")
	return cmd
}

// NewRetrievalCommand creates the 'fedviz retrieval' command
func NewRetrievalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieval <file-or-dir>...",
		Short: "Pellet retrieval times",
		Long: `Report the retrieval time of each pellet. A single file is paired with its
pellet count; several files are combined into one table. Retrieval times
above --cutoff seconds are dropped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRetrieval,
	}
	cmd.Flags().Float64("cutoff", 0, "Drop retrieval times above this many seconds (default from retrieval_threshold)")
	return cmd
}

// NewDiagnosticsCommand creates the 'fedviz diagnostics' command
func NewDiagnosticsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics <file-or-dir>...",
		Short: "Pellets, motor turns and battery per file",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDiagnostics,
	}
}

// eachRecord builds one table per record, naming each after its file.
func eachRecord(recs []*record.Record, build func(*record.Record) (*table.Table, error)) ([]*table.Table, error) {
	out := make([]*table.Table, 0, len(recs))
	for _, r := range recs {
		t, err := build(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Basename, err)
		}
		t.Name = t.Name + " " + r.Basename
		out = append(out, t)
	}
	return out, nil
}

func runPokes(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	st := env.settings
	opts := plotdata.PokesFrom(st)
	if cmd.Flags().Changed("frequency") {
		freq, _ := cmd.Flags().GetBool("frequency")
		opts.Cumulative = !freq
	}
	bin, err := binFlag(cmd, "bins", st.PokeBins)
	if err != nil {
		return err
	}
	opts.Bin = bin.Std()
	metric, err := metricFlag(cmd, st.BiasStyle)
	if err != nil {
		return err
	}
	bias, _ := cmd.Flags().GetBool("bias")

	recs, err := env.loadRecords(cmd, args)
	if err != nil {
		return err
	}

	tables, err := eachRecord(recs, func(r *record.Record) (*table.Table, error) {
		if bias {
			return plotdata.PokeBias(r, metric, opts.Bin, opts.DateFilter)
		}
		return plotdata.Pokes(r, opts)
	})
	if err != nil {
		return fmt.Errorf("pokes: %w", err)
	}
	return env.writeTables(cmd, tables...)
}

func runBreakpoint(cmd *cobra.Command, args []string) error {
	by, _ := cmd.Flags().GetString("by")
	if by != "file" && by != "group" {
		return fmt.Errorf("unknown split %q, must be file or group", by)
	}

	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	st := env.settings
	cfg := st.Breakpoint()
	if raw, _ := cmd.Flags().GetString("style"); raw != "" {
		if cfg.Style, err = breakpoint.ParseStyle(raw); err != nil {
			return err
		}
	}
	errKind, err := errorFlag(cmd, st.BreakError)
	if err != nil {
		return err
	}

	recs, err := env.loadRecords(cmd, args)
	if err != nil {
		return err
	}

	var t *table.Table
	if by == "group" {
		t, err = plotdata.GroupBreakpoints(recs, selectedGroups(cmd, recs), cfg, errKind)
	} else {
		t, err = plotdata.Breakpoints(recs, cfg)
	}
	if err != nil {
		return fmt.Errorf("breakpoint: %w", err)
	}
	return env.writeTables(cmd, t)
}

func runRetrieval(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	cutoff := plotdata.RetrievalCutoff(env.settings)
	if cmd.Flags().Changed("cutoff") {
		cutoff, _ = cmd.Flags().GetFloat64("cutoff")
	}

	recs, err := env.loadRecords(cmd, args)
	if err != nil {
		return err
	}

	dr := env.settings.DateRange()
	var t *table.Table
	if len(recs) == 1 {
		t, err = plotdata.Retrieval(recs[0], cutoff, dr)
	} else {
		t, err = plotdata.RetrievalMulti(recs, cutoff, dr)
	}
	if err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	return env.writeTables(cmd, t)
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	recs, err := env.loadRecords(cmd, args)
	if err != nil {
		return err
	}
	dr := env.settings.DateRange()
	tables, err := eachRecord(recs, func(r *record.Record) (*table.Table, error) {
		return plotdata.Diagnostics(r, dr)
	})
	if err != nil {
		return fmt.Errorf("diagnostics: %w", err)
	}
	return env.writeTables(cmd, tables...)
}
