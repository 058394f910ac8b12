package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for fedviz
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fedviz",
		Short: "Analyze FED3 feeding device recordings",
		Long: `fedviz loads FED3 pellet dispenser recordings (.csv or .xlsx) and turns
them into tables: cumulative and binned pellets, group averages, day/night
and circadian profiles, meal sizes, interpellet intervals, poke accuracy,
progressive-ratio breakpoints and summary statistics.

Tables are written as CSV, JSON, Markdown or aligned text, and can be served
over HTTP with 'fedviz serve'.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error (default from config)")
	pf.String("log-dir", "", "Directory for run logs (default from config)")
	pf.Bool("no-log-file", false, "Do not write a run log file")
	pf.String("settings", "", "Saved settings name or settings CSV path (default: LAST_USED, then DEFAULT)")
	pf.StringArray("set", nil, "Override one setting, e.g. --set lights_on=6 (repeatable)")
	pf.String("groups-file", "", "Group table name or CSV path to apply after loading")
	pf.String("from", "", "Date filter start (YYYY-MM-DD[ hh:mm:ss])")
	pf.String("to", "", "Date filter end (YYYY-MM-DD[ hh:mm:ss])")
	pf.StringP("output", "o", "", "Write output to this file instead of stdout")
	pf.String("format", "", "Output format: csv, json, markdown, table (default: table on a terminal, else csv)")

	cmd.AddCommand(NewInspectCommand())
	cmd.AddCommand(NewSummaryCommand())
	cmd.AddCommand(NewPelletsCommand())
	cmd.AddCommand(NewAverageCommand())
	cmd.AddCommand(NewDayNightCommand())
	cmd.AddCommand(NewChronogramCommand())
	cmd.AddCommand(NewIPICommand())
	cmd.AddCommand(NewMealsCommand())
	cmd.AddCommand(NewPokesCommand())
	cmd.AddCommand(NewBreakpointCommand())
	cmd.AddCommand(NewRetrievalCommand())
	cmd.AddCommand(NewDiagnosticsCommand())
	cmd.AddCommand(NewConcatCommand())
	cmd.AddCommand(NewGroupsCommand())
	cmd.AddCommand(NewSettingsCommand())
	cmd.AddCommand(NewSessionCommand())
	cmd.AddCommand(NewServeCommand())

	return cmd
}
