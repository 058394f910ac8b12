package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/plotdata"
	"github.com/harrison/fedviz/internal/session"
	"github.com/harrison/fedviz/internal/table"
)

// NewSessionCommand creates the 'fedviz session' command
func NewSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Save and reopen analysis sessions",
		Long: `A session keeps loaded records with their group labels, the settings in
effect and optionally computed tables in the session database, so an
analysis can be reopened without the original files.`,
	}

	save := &cobra.Command{
		Use:   "save <name> <file-or-dir>...",
		Short: "Load files and store them as a session",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSessionSave,
	}
	save.Flags().Bool("summary", false, "Also store the summary statistics table")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionList,
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Describe a stored session or print one of its tables",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionShow,
	}
	show.Flags().String("table", "", "Print the stored table with this name")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionDelete,
	}

	cmd.AddCommand(save, list, show, del)
	return cmd
}

func (e *runEnv) openSessions() (*session.Store, error) {
	store, err := session.NewStore(e.cfg.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	return store, nil
}

func runSessionSave(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	recs, err := env.loadRecords(cmd, args[1:])
	if err != nil {
		return err
	}
	sess := &session.Session{Name: args[0], Records: recs, Settings: env.settings}
	if withSummary, _ := cmd.Flags().GetBool("summary"); withSummary {
		t, err := plotdata.Summary(recs, plotdata.SummaryFrom(env.settings))
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		sess.Outputs = append(sess.Outputs, session.Output{Name: t.Name, Kind: "summary", Table: t})
	}

	store, err := env.openSessions()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(cmd.Context(), sess); err != nil {
		return err
	}
	env.log.LogInfo(fmt.Sprintf("saved session %s with %d records", sess.Name, len(recs)))
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := env.openSessions()
	if err != nil {
		return err
	}
	defer store.Close()
	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Name\tRecords\tTables\tUpdated")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Name, s.Records, s.Outputs, s.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := env.openSessions()
	if err != nil {
		return err
	}
	defer store.Close()
	sess, err := store.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if name, _ := cmd.Flags().GetString("table"); name != "" {
		var found []*table.Table
		for _, o := range sess.Outputs {
			if o.Name == name {
				found = append(found, o.Table)
			}
		}
		if len(found) == 0 {
			return fmt.Errorf("session %s has no table %q", sess.Name, name)
		}
		return env.writeTables(cmd, found...)
	}

	fmt.Fprintf(env.stdout, "Session %s (updated %s)\n\n", sess.Name, sess.UpdatedAt.Local().Format(time.DateTime))
	tw := tabwriter.NewWriter(env.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tMode\tEvents\tGroups")
	for _, r := range sess.Records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Basename, orDash(r.Mode), r.Len(), orDash(strings.Join(r.Groups().Labels(), ", ")))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(sess.Outputs) > 0 {
		fmt.Fprintln(env.stdout, "\nTables:")
		for _, o := range sess.Outputs {
			fmt.Fprintf(env.stdout, "  %s (%s)\n", o.Name, o.Kind)
		}
	}
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := env.openSessions()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	env.log.LogInfo(fmt.Sprintf("deleted session %s", args[0]))
	return nil
}
