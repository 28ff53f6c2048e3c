package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mbify/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (ffmpeg, ffprobe)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ff, ferr := deps.FindFFmpeg(persistentFFmpeg())
			if ferr != nil {
				return &ExitError{Code: ExitMissingDep, Err: ferr}
			}
			fp, perr := deps.FindFFprobe(persistentFFprobe())
			if perr != nil {
				return &ExitError{Code: ExitMissingDep, Err: perr}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "FFmpeg:  %s\n", ff)
			fmt.Fprintf(cmd.OutOrStdout(), "FFprobe: %s\n", fp)
			return nil
		},
	}
}
