package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan <input> [output|scenes.csv]",
		Short:         "Show the bitrate plan and ffmpeg commands without encoding",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.RangeArgs(1, 2),
		PreRunE:       planPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isSceneCSV(args) {
				return scenesExecute(cmd, args, runMode{DryRunOnly: true}, false)
			}
			return runExecute(cmd, args, runMode{DryRunOnly: true})
		},
	}
	// Reuse same flags; plan never executes ffmpeg. The scenes flags cover
	// the batch form.
	bindScenesFlags(cmd)
	if f := cmd.Flags().Lookup("no-ui"); f != nil {
		f.Hidden = true
	}
	return cmd
}

func planPreRun(cmd *cobra.Command, args []string) error {
	if isSceneCSV(args) {
		return scenesPreRun(cmd, args)
	}
	return runPreRun(cmd, args)
}

// isSceneCSV reports whether the second argument selects batch planning.
func isSceneCSV(args []string) bool {
	return len(args) == 2 && strings.EqualFold(filepath.Ext(args[1]), ".csv")
}
