package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/settings"
)

// NewSettingsCommand creates the 'fedviz settings' command
func NewSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show, save and list analysis settings",
		Long: `Settings are stored as two-column CSV files (Setting, Value) in the
settings directory. DEFAULT is loaded on start; LAST_USED is written after
every run and takes precedence when its load_last_used is True.

The global --settings, --set, --from and --to flags select and adjust the
settings every command uses.`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the settings in effect",
		Args:  cobra.NoArgs,
		RunE:  runSettingsShow,
	}
	show.Flags().Bool("csv", false, "Print the settings file format")

	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Save the settings in effect under a name",
		Long: `Save the settings in effect, including any --set overrides, under <name>.
Save as DEFAULT to change what loads on start.

  fedviz settings save DEFAULT --set lights_on=6 --set lights_off=18`,
		Args: cobra.ExactArgs(1),
		RunE: runSettingsSave,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsList,
	}

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List the setting names accepted by --set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range settings.Keys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}

	cmd.AddCommand(show, save, list, keys)
	return cmd
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	if asCSV, _ := cmd.Flags().GetBool("csv"); asCSV {
		return env.settings.WriteCSV(env.stdout)
	}
	rows, err := env.settings.Rows()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(env.stdout, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.Key, r.Value)
	}
	return tw.Flush()
}

func runSettingsSave(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	store := env.settingsStore()
	if err := store.Save(args[0], env.settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	env.log.LogInfo(fmt.Sprintf("saved settings to %s", store.Path(args[0])))
	return nil
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	names, err := env.settingsStore().List()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(env.stdout, n)
	}
	return nil
}
