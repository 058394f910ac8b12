package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/concat"
	"github.com/harrison/fedviz/internal/display"
)

// NewConcatCommand creates the 'fedviz concat' command
func NewConcatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "concat <file>... --output <file>",
		Short: "Join consecutive recordings of one device",
		Long: `Concatenate non-overlapping recordings into one CSV ordered by start time.
Pellet and poke counters continue across the joins and a Concat_# column
records which input each row came from. Inputs are not modified.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runConcat,
	}
}

func runConcat(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		return errors.New("concat needs --output")
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

	rec, err := concat.Save(recs, out)
	if err != nil {
		var overlap *concat.CannotConcatenateError
		if errors.As(err, &overlap) {
			display.Warning{
				Title:      "Recordings overlap",
				Message:    fmt.Sprintf("%s starts before %s ends.", overlap.Later, overlap.Earlier),
				Files:      []string{overlap.Earlier, overlap.Later},
				Suggestion: "Concatenate only consecutive recordings of the same device.",
			}.Display(env.stderr)
		}
		return err
	}
	env.log.LogInfo(fmt.Sprintf("wrote %s (%d rows from %d files)", out, rec.Len(), len(recs)))
	return nil
}
