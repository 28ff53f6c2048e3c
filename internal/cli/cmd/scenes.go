package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mbify/internal/pipeline"
	"mbify/internal/progress"
	"mbify/internal/ui"
	"mbify/internal/util/deps"
	"mbify/internal/util/format"
)

func newScenesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scenes <input> <scenes.csv>",
		Short:         "Encode every scene from a detector CSV, splitting the size budget",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(2),
		PreRunE:       scenesPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return scenesExecute(cmd, args, runMode{DryRunOnly: false}, false)
		},
	}
	bindScenesFlags(cmd)
	return cmd
}

func bindScenesFlags(cmd *cobra.Command) {
	bindRunFlags(cmd.Flags())
	cmd.Flags().StringP("output-dir", "o", "./out_scenes", "Directory for per-scene outputs")
	cmd.Flags().Bool("no-ui", false, "Disable the dashboard; use plain textual output")
	// Trims make no sense against detector windows.
	for _, name := range []string{"start", "end"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			f.Hidden = true
		}
	}
}

func scenesPreRun(cmd *cobra.Command, args []string) error {
	// Reuse the single-file assembly; scene windows replace any trim later.
	return runPreRun(cmd, args[:1])
}

func scenesExecute(cmd *cobra.Command, args []string, mode runMode, forceTUI bool) error {
	var in runInputs
	if v := cmd.Context().Value(runInputsKey); v != nil {
		in = v.(runInputs)
	}
	inputPath, csvPath := args[0], args[1]
	outputDir, _ := cmd.Flags().GetString("output-dir")
	noUI, _ := cmd.Flags().GetBool("no-ui")

	dryRun := in.Print || mode.DryRunOnly
	useTUI := forceTUI || (!noUI && !dryRun && isTerminal())
	if useTUI {
		err := ui.Run(cmd.Context(), ui.Options{
			InputPath:   inputPath,
			CSVPath:     csvPath,
			OutputDir:   outputDir,
			FFmpegPath:  persistentFFmpeg(),
			FFprobePath: persistentFFprobe(),
			Enc:         in.Enc,
			Verbose:     in.Verbose,
			DryRun:      dryRun,
		})
		if err != nil {
			return uiExitError(err)
		}
		return nil
	}

	ffprobePath, perr := deps.FindFFprobe(persistentFFprobe())
	if perr != nil {
		return &ExitError{Code: ExitMissingDep, Err: perr}
	}
	ffmpegPath, ferr := deps.FindFFmpeg(persistentFFmpeg())
	if ferr != nil {
		if !dryRun {
			return &ExitError{Code: ExitMissingDep, Err: ferr}
		}
		ffmpegPath = "ffmpeg"
	}

	svc := pipeline.NewService(
		pipeline.WithFFmpegPath(ffmpegPath),
		pipeline.WithFFprobePath(ffprobePath),
		pipeline.WithEncodeOptions(in.Enc),
		pipeline.WithVerbose(in.Verbose),
		pipeline.WithDryRun(dryRun),
		pipeline.WithReporter(stderrReporter{verbose: in.Verbose}),
	)
	res, err := svc.RunScenes(cmd.Context(), inputPath, csvPath, outputDir)
	if err != nil {
		return exitErrorFor(err)
	}

	printBatchReport(cmd, res)
	if res.Failed > 0 {
		return &ExitError{Code: ExitEncodeError,
			Err: fmt.Errorf("%d of %d scene(s) failed", res.Failed, len(res.Scenes))}
	}
	return nil
}

func printBatchReport(cmd *cobra.Command, res pipeline.BatchResult) {
	w := cmd.OutOrStdout()
	if res.Planned {
		fmt.Fprintf(w, "Plan for %d scene(s) of %s:\n", len(res.Scenes), res.Source.Path)
		for _, sr := range res.Scenes {
			if sr.Err != nil {
				fmt.Fprintf(w, "%s: plan failed: %v\n", sr.JobID(), sr.Err)
				continue
			}
			fmt.Fprintf(w, "%s: %s (%s)\n", sr.JobID(), sr.Job.OutputPath, format.MiB(sr.Job.TargetBytes))
			for _, c := range sr.Commands {
				fmt.Fprintf(w, "  %s\n", c)
			}
		}
		return
	}

	var total int64
	for _, sr := range res.Scenes {
		if sr.Err != nil {
			fmt.Fprintf(w, "%s: failed: %v\n", sr.JobID(), sr.Err)
			continue
		}
		fmt.Fprintf(w, "%s: %s (%s)\n", sr.JobID(), sr.Output.OutputPath, format.MiB(sr.Output.Bytes))
		total += sr.Output.Bytes
	}
	fmt.Fprintf(w, "Done: %d scene(s), %s total in %s\n",
		len(res.Scenes)-res.Failed, format.MiB(total), res.Elapsed.Round(timeRound))
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// uiExitError maps dashboard failures to exit codes: a missing external tool
// exits the same way the plain-text path does, anything else is an encode
// failure.
func uiExitError(err error) *ExitError {
	var nf *deps.NotFoundError
	if errors.As(err, &nf) {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	return &ExitError{Code: ExitEncodeError, Err: err}
}

// stderrReporter surfaces planner and encoder warnings in plain-text mode.
// Progress updates are dropped; the final per-scene report covers results.
type stderrReporter struct {
	verbose bool
}

func (r stderrReporter) Update(progress.Update) {}

func (r stderrReporter) Log(l progress.Log) {
	if l.Stream == progress.StreamStderr || r.verbose {
		fmt.Fprintln(os.Stderr, l.Line)
	}
}

func (r stderrReporter) Result(progress.Result) {}
