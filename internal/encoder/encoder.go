// Package encoder runs ffmpeg processes for planned encode jobs: two-pass
// size-targeted encodes and single-pass CRF previews.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mbify/internal/model"
	"mbify/internal/progress"
	"mbify/internal/util"
)

// Options control ffmpeg execution.
type Options struct {
	FFmpegPath string
	Verbose    bool
	Reporter   progress.Reporter // optional; enables -progress parsing
	JobID      string
	Runner     util.CmdRunner // optional; defaults to os/exec
}

// stderrTailLines is how many trailing stderr lines a ProcessError keeps for
// diagnostics.
const stderrTailLines = 20

// ProcessError reports an ffmpeg process that exited nonzero.
type ProcessError struct {
	Pass       int // 1 or 2; 0 for a proto encode
	ExitCode   int
	StderrTail []string
}

func (e *ProcessError) Error() string {
	label := "proto encode"
	if e.Pass > 0 {
		label = fmt.Sprintf("pass %d", e.Pass)
	}
	if len(e.StderrTail) == 0 {
		return fmt.Sprintf("ffmpeg %s failed with exit code %d", label, e.ExitCode)
	}
	return fmt.Sprintf("ffmpeg %s failed with exit code %d: %s",
		label, e.ExitCode, e.StderrTail[len(e.StderrTail)-1])
}

// Encode runs the job to completion and returns metadata about the output
// file. On failure or cancellation it removes the partial output and any
// pass-log artifacts before returning.
func Encode(ctx context.Context, job model.EncodeJob, opts Options) (model.OutputVideo, error) {
	if opts.FFmpegPath == "" {
		return model.OutputVideo{}, errors.New("ffmpeg path is required")
	}
	if job.OutputPath == "" {
		return model.OutputVideo{}, errors.New("output path is required")
	}
	if opts.Runner == nil {
		opts.Runner = util.NewDefaultRunner()
	}
	if err := util.EnsureDir(filepath.Dir(job.OutputPath)); err != nil {
		return model.OutputVideo{}, fmt.Errorf("ensure output dir: %w", err)
	}

	if job.Mode == model.ModeProto {
		if err := runPass(ctx, job, 0, opts); err != nil {
			cleanupArtifacts(job)
			return model.OutputVideo{}, err
		}
	} else {
		if err := runPass(ctx, job, 1, opts); err != nil {
			cleanupArtifacts(job)
			return model.OutputVideo{}, err
		}
		if err := runPass(ctx, job, 2, opts); err != nil {
			cleanupArtifacts(job)
			return model.OutputVideo{}, err
		}
		cleanupPassLogs(job.PassLogPath)
	}

	fi, err := os.Stat(job.OutputPath)
	if err != nil {
		return model.OutputVideo{}, fmt.Errorf("stat output: %w", err)
	}
	return model.OutputVideo{
		OutputPath:      job.OutputPath,
		Bytes:           fi.Size(),
		UsedCRF:         job.CRF,
		UsedBitrateKbps: job.VideoBitrateBps / 1000,
	}, nil
}

// runPass executes one ffmpeg invocation, streaming progress to the reporter
// when one is attached.
func runPass(ctx context.Context, job model.EncodeJob, pass int, opts Options) error {
	includeProgress := opts.Reporter != nil
	var args []string
	stage := progress.StageEncoding
	switch {
	case job.Mode == model.ModeProto:
		args = BuildProtoArgs(job, includeProgress)
	case pass == 1:
		args = BuildPassArgs(job, 1, includeProgress)
		stage = progress.StagePassOne
	default:
		args = BuildPassArgs(job, 2, includeProgress)
		stage = progress.StagePassTwo
	}

	path, args := withPriority(opts.FFmpegPath, args, job.CPUPriority)

	ps := &ProgressState{}
	var tail []string
	spec := util.CmdSpec{
		Path:    path,
		Args:    args,
		Verbose: opts.Verbose,
		StderrLine: func(line string) {
			tail = append(tail, line)
			if len(tail) > stderrTailLines {
				tail = tail[1:]
			}
			if opts.Reporter != nil && opts.Verbose {
				opts.Reporter.Log(progress.Log{JobID: opts.JobID, Stream: progress.StreamStderr, Line: line})
			}
		},
	}
	if includeProgress {
		spec.StdoutLine = func(line string) {
			if u, ok := ps.UpdateFromLine(line, opts.JobID, job.EffectiveDuration, stage); ok {
				opts.Reporter.Update(u)
			}
		}
	}

	res, err := opts.Runner.Run(ctx, spec)
	if err != nil {
		perr := &ProcessError{Pass: pass, ExitCode: res.Code, StderrTail: append([]string(nil), tail...)}
		if len(perr.StderrTail) == 0 && len(res.Stderr) > 0 {
			perr.StderrTail = tailLines(string(res.Stderr), stderrTailLines)
		}
		return perr
	}
	return nil
}

// withPriority wraps the command in nice(1) when a CPU priority is requested.
// Raising priority may need elevated permissions; nice reports that itself.
func withPriority(path string, args []string, priority string) (string, []string) {
	switch priority {
	case "low":
		return "nice", append([]string{"-n", "10", path}, args...)
	case "high":
		return "nice", append([]string{"-n", "-10", path}, args...)
	}
	return path, args
}

// cleanupArtifacts removes the partial output and pass logs after a failed or
// cancelled encode.
func cleanupArtifacts(job model.EncodeJob) {
	_ = util.RemoveIfExists(job.OutputPath)
	cleanupPassLogs(job.PassLogPath)
}

// cleanupPassLogs removes the statistics files ffmpeg leaves next to the
// output.
func cleanupPassLogs(prefix string) {
	if prefix == "" {
		return
	}
	_ = util.RemoveIfExists(prefix + "-0.log")
	_ = util.RemoveIfExists(prefix + "-0.log.temp")
}

func tailLines(s string, n int) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
