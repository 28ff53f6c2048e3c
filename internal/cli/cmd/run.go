package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mbify/internal/encoder"
	"mbify/internal/model"
	"mbify/internal/pipeline"
	"mbify/internal/probe"
	"mbify/internal/util"
	"mbify/internal/util/deps"
	"mbify/internal/util/format"
)

type runMode struct {
	DryRunOnly bool
}

// timeRound keeps elapsed-time output readable.
const timeRound = 100 * time.Millisecond

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run <input> [output]",
		Short:         "Encode one file to the target size",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.RangeArgs(1, 2),
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{DryRunOnly: false})
		},
	}
	// Bind same flags as root for explicit subcommand usage
	bindRunFlags(cmd.Flags())
	return cmd
}

type ctxKey string

const runInputsKey ctxKey = "runInputs"

type runInputs struct {
	InputPath  string
	OutputPath string
	Enc        model.EncodeOptions
	Verbose    bool
	Print      bool
}

func runPreRun(cmd *cobra.Command, args []string) error {
	in, err := assembleRunInputs(cmd, args)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	ctx := context.WithValue(cmd.Context(), runInputsKey, in)
	cmd.SetContext(ctx)
	return nil
}

func assembleRunInputs(cmd *cobra.Command, args []string) (runInputs, error) {
	var in runInputs
	in.InputPath = args[0]
	if len(args) > 1 {
		in.OutputPath = args[1]
	}
	in.Verbose = persistentVerbose()
	in.Print, _ = cmd.Flags().GetBool("print")

	sizeMiB, _ := cmd.Flags().GetInt("size")
	audioKbps, _ := cmd.Flags().GetInt("audio-bitrate")
	mute, _ := cmd.Flags().GetBool("mute")
	speed, _ := cmd.Flags().GetFloat64("speed")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	fps, _ := cmd.Flags().GetInt("fps")
	scale, _ := cmd.Flags().GetInt("scale")
	scaler, _ := cmd.Flags().GetString("scaler")
	hardsub, _ := cmd.Flags().GetString("hardsub")
	vfAppend, _ := cmd.Flags().GetString("vf-append")
	proto, _ := cmd.Flags().GetBool("proto")
	crf, _ := cmd.Flags().GetInt("crf")

	if !proto && sizeMiB < 1 {
		return in, fmt.Errorf("invalid --size: %d (must be at least 1 MiB)", sizeMiB)
	}
	if speed <= 0 {
		return in, fmt.Errorf("invalid --speed: %g (must be positive)", speed)
	}
	if audioKbps < 0 {
		return in, fmt.Errorf("invalid --audio-bitrate: %d", audioKbps)
	}
	if fps < 0 {
		return in, fmt.Errorf("invalid --fps: %d", fps)
	}
	if scale < 0 {
		return in, fmt.Errorf("invalid --scale: %d", scale)
	}
	if !model.ValidScaler(model.Scaler(scaler)) {
		return in, fmt.Errorf("invalid --scaler: %q (valid: nearest|bicubic|lanczos)", scaler)
	}
	if crf < model.ProtoCRFMin {
		crf = model.ProtoCRFMin
	}
	if crf > model.ProtoCRFMax {
		crf = model.ProtoCRFMax
	}

	priority := strings.ToLower(persistentPriority())
	switch priority {
	case "", "low", "high":
	default:
		return in, fmt.Errorf("invalid --cpu-priority: %q (valid: low|high)", priority)
	}

	var trim model.TrimWindow
	if v, ok, err := util.ParseTimestamp(startStr); err != nil {
		return in, fmt.Errorf("--start: %w", err)
	} else if ok {
		trim.Start, trim.HasStart = v, true
	}
	if v, ok, err := util.ParseTimestamp(endStr); err != nil {
		return in, fmt.Errorf("--end: %w", err)
	} else if ok {
		trim.End, trim.HasEnd = v, true
	}

	// --audio-bitrate 0 is another way of saying --mute
	if audioKbps == 0 {
		mute = true
	}

	in.Enc = model.EncodeOptions{
		TargetBytes:      model.TargetBytesFromMiB(sizeMiB),
		AudioBitrateKbps: audioKbps,
		Mute:             mute,
		Speed:            speed,
		Trim:             trim,
		ScaleTarget:      scale,
		Scaler:           model.Scaler(scaler),
		FPS:              fps,
		HardsubPath:      hardsub,
		AppendFilters:    vfAppend,
		Proto:            proto,
		CRF:              crf,
		OverheadFraction: persistentOverhead(),
		MinVideoKbps:     persistentMinKbps(),
		CPUPriority:      priority,
	}
	return in, nil
}

func runExecute(cmd *cobra.Command, args []string, mode runMode) error {
	var in runInputs
	if v := cmd.Context().Value(runInputsKey); v != nil {
		in = v.(runInputs)
	} else {
		assembled, err := assembleRunInputs(cmd, args)
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		in = assembled
	}

	dryRun := in.Print || mode.DryRunOnly

	ffprobePath, perr := deps.FindFFprobe(persistentFFprobe())
	if perr != nil {
		return &ExitError{Code: ExitMissingDep, Err: perr}
	}
	ffmpegPath, ferr := deps.FindFFmpeg(persistentFFmpeg())
	if ferr != nil {
		if !dryRun {
			return &ExitError{Code: ExitMissingDep, Err: ferr}
		}
		// Dry-run only prints command lines; a bare name is fine.
		ffmpegPath = "ffmpeg"
	}

	svc := pipeline.NewService(
		pipeline.WithFFmpegPath(ffmpegPath),
		pipeline.WithFFprobePath(ffprobePath),
		pipeline.WithEncodeOptions(in.Enc),
		pipeline.WithVerbose(in.Verbose),
		pipeline.WithDryRun(dryRun),
	)
	res, err := svc.RunFile(cmd.Context(), in.InputPath, in.OutputPath)
	if err != nil {
		return exitErrorFor(err)
	}

	if res.Planned {
		printFilePlan(cmd, res)
		return nil
	}

	if res.Job.BelowFloor {
		fmt.Fprintf(os.Stderr, "warning: video bitrate clamped to the %d kbps floor; output will exceed the target\n",
			res.Job.VideoBitrateBps/1000)
	}
	if res.Overshot {
		fmt.Fprintf(os.Stderr, "warning: output is %.0f%% of the target size; consider a longer trim or a larger --size\n",
			res.OvershootRatio*100)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s (%s) in %s\n",
		res.Output.OutputPath, format.MiB(res.Output.Bytes), res.Elapsed.Round(timeRound))
	return nil
}

// exitErrorFor maps pipeline errors onto process exit codes.
func exitErrorFor(err error) error {
	var pe *probe.Error
	if errors.As(err, &pe) {
		return &ExitError{Code: ExitProbeError, Err: err}
	}
	var ee *encoder.ProcessError
	if errors.As(err, &ee) {
		return &ExitError{Code: ExitEncodeError, Err: err}
	}
	return &ExitError{Code: ExitCLIError, Err: err}
}

func printFilePlan(cmd *cobra.Command, res pipeline.Result) {
	w := cmd.OutOrStdout()
	job := res.Job
	fmt.Fprintf(w, "Plan for %s:\n", res.Source.Path)
	fmt.Fprintf(w, "- Output:         %s\n", job.OutputPath)
	if job.Mode == model.ModeProto {
		fmt.Fprintf(w, "- Mode:           proto (CRF %d, single pass)\n", job.CRF)
	} else {
		fmt.Fprintf(w, "- Mode:           two-pass, target %s\n", format.MiB(job.TargetBytes))
		fmt.Fprintf(w, "- Video bitrate:  %d kbps\n", job.VideoBitrateBps/1000)
	}
	if job.AudioBitrateBps > 0 {
		fmt.Fprintf(w, "- Audio bitrate:  %d kbps (Opus)\n", job.AudioBitrateBps/1000)
	} else {
		fmt.Fprintf(w, "- Audio:          none\n")
	}
	if job.Trimmed {
		fmt.Fprintf(w, "- Trim:           %ss to %ss\n", util.FormatSeconds(job.Start), util.FormatSeconds(job.End))
	}
	if job.VideoFilter != "" {
		fmt.Fprintf(w, "- Filters:        %s\n", job.VideoFilter)
	}
	if job.BelowFloor {
		fmt.Fprintf(w, "- Note:           bitrate floor-clamped; output will exceed the target\n")
	}
	fmt.Fprintln(w, "Commands:")
	for _, c := range res.Plan.Commands {
		fmt.Fprintf(w, "  %s\n", c)
	}
}
