package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewInspectCommand creates the 'fedviz inspect' command
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file-or-dir>...",
		Short: "Describe loaded device files",
		Long: `Load device files and print one line per file: mode, number of events,
time span, group labels and any missing or unrecognised columns.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInspect,
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	recs, err := env.loadRecords(cmd, args)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tMode\tEvents\tStart\tEnd\tHours\tGroups\tMissing\tForeign")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
			r.Basename,
			r.Mode,
			r.Len(),
			r.Start.Format("2006-01-02 15:04"),
			r.End.Format("2006-01-02 15:04"),
			r.Duration.Hours(),
			orDash(strings.Join(r.Groups().Labels(), ",")),
			orDash(strings.Join(r.Missing, ",")),
			orDash(strings.Join(r.Foreign, ",")))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
