package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mbify/internal/config"
)

const (
	ExitOK          = 0
	ExitCLIError    = 1
	ExitMissingDep  = 2
	ExitProbeError  = 3
	ExitEncodeError = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mbify <input> [output]",
		Short:         "Encode videos to an exact size",
		Long:          "Mbify squeezes a video into a target number of mebibytes. It probes the source, splits the byte budget between VP9 video and Opus audio, and runs a two-pass ffmpeg encode that lands on the target instead of guessing at quality settings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.RangeArgs(1, 2),
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare `mbify <input>` behaves like `mbify run <input>`.
			return runExecute(cmd, args, runMode{DryRunOnly: false})
		},
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().BoolP("verbose", "v", false, "Show full subprocess commands/output")
	root.PersistentFlags().Float64("overhead", 0.02, "Container overhead fraction reserved out of the byte budget")
	root.PersistentFlags().Int("min-video-kbps", 50, "Video bitrate floor in kbps; below it the encode warns and overshoots")
	root.PersistentFlags().String("cpu-priority", "", "Encoder CPU priority: low, high (empty = normal)")
	root.PersistentFlags().String("ffmpeg-path", "", "Path to ffmpeg (default: PATH lookup)")
	root.PersistentFlags().String("ffprobe-path", "", "Path to ffprobe (default: PATH lookup)")

	// Also bind run flags on root, so `mbify <input>` works without a subcommand.
	bindRunFlags(root.Flags())

	// Config file + MBIFY_* env bindings
	_ = config.Init(root)

	// Subcommands
	root.AddCommand(newRunCmd())
	root.AddCommand(newScenesCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindRunFlags(fs *pflag.FlagSet) {
	fs.IntP("size", "s", 100, "Target output size in MiB")
	fs.Int("audio-bitrate", 96, "Opus audio bitrate in kbps; 0 drops the audio stream")
	fs.Bool("mute", false, "Drop the audio stream")
	fs.Float64("speed", 1.0, "Playback speed factor (setpts + atempo)")
	fs.String("start", "", "Trim start (seconds or HH:MM:SS)")
	fs.String("end", "", "Trim end (seconds or HH:MM:SS)")
	fs.Int("fps", 0, "Target frame rate; 0 keeps the source rate")
	fs.Int("scale", 0, "Downscale so the smaller dimension is this many px; 0 keeps the source size")
	fs.String("scaler", "", "Scaling algorithm: nearest, bicubic, lanczos (empty = auto)")
	fs.String("hardsub", "", "Subtitle file to burn into the video")
	fs.String("vf-append", "", "Raw filter text appended to the -vf chain, unvalidated")
	fs.Bool("proto", false, "Fast single-pass CRF preview instead of a sized encode")
	fs.Int("crf", 30, "Proto quality (30-63, lower is better)")
	fs.Bool("print", false, "Print the ffmpeg command lines instead of encoding")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}

// Persistent-flag helpers. Reads go through Viper so config file and MBIFY_*
// environment values apply when the flag was not set.
func persistentVerbose() bool     { return viper.GetBool("verbose") }
func persistentOverhead() float64 { return viper.GetFloat64("overhead") }
func persistentMinKbps() int      { return viper.GetInt("min_video_kbps") }
func persistentPriority() string  { return viper.GetString("cpu_priority") }
func persistentFFmpeg() string    { return viper.GetString("ffmpeg_path") }
func persistentFFprobe() string   { return viper.GetString("ffprobe_path") }
