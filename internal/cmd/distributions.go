package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/plotdata"
	"github.com/harrison/fedviz/internal/table"
)

// NewIPICommand creates the 'fedviz ipi' command
func NewIPICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ipi <file-or-dir>...",
		Short: "Interpellet interval histograms",
		Long: `Histogram the minutes between consecutive pellets, per file, pooled per
group (--by group) or split into day and night (--by daynight). With
--logx the bins are log10 minutes from -2 to 5.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIPI,
	}
	cmd.Flags().String("by", "file", "Split: file, group or daynight")
	cmd.Flags().String("groups", "", "Comma-separated groups for --by group (default: every group)")
	cmd.Flags().Bool("logx", false, "Use log10 bins (default from logx)")
	return cmd
}

// NewMealsCommand creates the 'fedviz meals' command
func NewMealsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meals <file-or-dir>...",
		Short: "Meal size histograms",
		Long: `Segment pellets into meals (at least meal_pellet_minimum pellets, each
within meal_duration minutes of the previous) and histogram the meal sizes
per file or pooled per group.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMeals,
	}
	cmd.Flags().String("by", "file", "Split: file or group")
	cmd.Flags().String("groups", "", "Comma-separated groups for --by group (default: every group)")
	cmd.Flags().Bool("density", false, "Normalize each histogram to a density (default from norm_meals)")
	return cmd
}

func runIPI(cmd *cobra.Command, args []string) error {
	by, _ := cmd.Flags().GetString("by")
	if by != "file" && by != "group" && by != "daynight" {
		return fmt.Errorf("unknown split %q, must be file, group or daynight", by)
	}

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
	logx := st.LogX
	if cmd.Flags().Changed("logx") {
		logx, _ = cmd.Flags().GetBool("logx")
	}

	var t *table.Table
	switch by {
	case "group":
		t, err = plotdata.GroupIPI(recs, selectedGroups(cmd, recs), st.DateRange(), logx)
	case "daynight":
		t, err = plotdata.DayNightIPI(recs, st.Schedule(), st.DateRange(), logx)
	default:
		t, err = plotdata.IPI(recs, st.DateRange(), logx)
	}
	if err != nil {
		return fmt.Errorf("ipi: %w", err)
	}
	return env.writeTables(cmd, t)
}

func runMeals(cmd *cobra.Command, args []string) error {
	by, _ := cmd.Flags().GetString("by")
	if by != "file" && by != "group" {
		return fmt.Errorf("unknown split %q, must be file or group", by)
	}

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
	density := st.NormMeals
	if cmd.Flags().Changed("density") {
		density, _ = cmd.Flags().GetBool("density")
	}

	var t *table.Table
	if by == "group" {
		t, err = plotdata.GroupMealSizes(recs, selectedGroups(cmd, recs), st.MealPolicy(), st.DateRange(), density)
	} else {
		t, err = plotdata.MealSizes(recs, st.MealPolicy(), st.DateRange(), density)
	}
	if err != nil {
		return fmt.Errorf("meals: %w", err)
	}
	return env.writeTables(cmd, t)
}
