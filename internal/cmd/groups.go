package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/groups"
	"github.com/harrison/fedviz/internal/record"
)

// NewGroupsCommand creates the 'fedviz groups' command
func NewGroupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage saved group tables",
	}

	save := &cobra.Command{
		Use:   "save <name> <file-or-dir>...",
		Short: "Label files and save their groups",
		Long: `Load the inputs, apply any --groups-file, then apply each --label and save
every labelled file's groups under <name>.

  fedviz groups save cohort1 data/ --label FED001.csv=Control --label FED002.csv=Treated,Male`,
		Args: cobra.MinimumNArgs(2),
		RunE: runGroupsSave,
	}
	save.Flags().StringArray("label", nil, "FILE=GROUP[,GROUP...] (repeatable)")

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved group table",
		Args:  cobra.ExactArgs(1),
		RunE:  runGroupsShow,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved group tables",
		Args:  cobra.NoArgs,
		RunE:  runGroupsList,
	}

	cmd.AddCommand(save, show, list)
	return cmd
}

// parseLabels reads FILE=GROUP[,GROUP...] assignments keyed by basename.
func parseLabels(raw []string) (map[string][]string, error) {
	out := make(map[string][]string, len(raw))
	for _, kv := range raw {
		file, list, ok := strings.Cut(kv, "=")
		file = strings.TrimSpace(file)
		if !ok || file == "" {
			return nil, fmt.Errorf("invalid --label %q, expected FILE=GROUP[,GROUP...]", kv)
		}
		var labels []string
		for _, g := range strings.Split(list, ",") {
			if g = strings.TrimSpace(g); g != "" {
				labels = append(labels, g)
			}
		}
		out[filepath.Base(file)] = labels
	}
	return out, nil
}

func runGroupsSave(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetStringArray("label")
	labels, err := parseLabels(raw)
	if err != nil {
		return err
	}

	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	recs, err := env.loadRecords(cmd, args[1:])
	if err != nil {
		return err
	}
	matched := make(map[string]bool)
	for _, r := range recs {
		if l, ok := labels[r.Basename]; ok {
			r.SetGroups(record.NewMembership(l...))
			matched[r.Basename] = true
		}
	}
	for file := range labels {
		if !matched[file] {
			env.log.LogWarn(fmt.Sprintf("--label %s matches no loaded file", file))
		}
	}

	t := groups.FromRecords(recs, env.settings.AbsoluteGroups)
	if len(t.Files) == 0 {
		return fmt.Errorf("no loaded file has a group")
	}
	path := env.groupsPath(args[0])
	if err := groups.Save(path, t); err != nil {
		return err
	}
	env.log.LogInfo(fmt.Sprintf("saved groups of %d files to %s", len(t.Files), path))
	return nil
}

func runGroupsShow(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	t, err := groups.Load(env.groupsPath(args[0]))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(env.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tGroups")
	for _, f := range t.Files {
		fmt.Fprintf(tw, "%s\t%s\n", f, strings.Join(t.Labels[f], ", "))
	}
	return tw.Flush()
}

func runGroupsList(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	entries, err := os.ReadDir(env.cfg.GroupsDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		}
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(env.stdout, n)
	}
	return nil
}
