// Package pipeline orchestrates the probe → plan → encode workflow for
// single files and scene batches.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"mbify/internal/encoder"
	"mbify/internal/model"
	"mbify/internal/planner"
	"mbify/internal/probe"
	"mbify/internal/progress"
	"mbify/internal/util"
	"mbify/internal/util/format"
	"mbify/internal/util/media"
)

// Service orchestrates the probe → plan → encode → finalize workflow.
type Service struct {
	ffmpegPath  string
	ffprobePath string
	enc         model.EncodeOptions
	verbose     bool
	dryRun      bool
	runner      util.CmdRunner
	reporter    progress.Reporter
	jobID       string
}

// Option configures a Service.
type Option func(*Service)

// WithFFmpegPath sets the ffmpeg binary path.
func WithFFmpegPath(p string) Option {
	return func(s *Service) {
		s.ffmpegPath = p
	}
}

// WithFFprobePath sets the ffprobe binary path.
func WithFFprobePath(p string) Option {
	return func(s *Service) {
		s.ffprobePath = p
	}
}

// WithEncodeOptions sets the per-job encoding policy assembled from flags.
func WithEncodeOptions(o model.EncodeOptions) Option {
	return func(s *Service) {
		s.enc = o
	}
}

// WithVerbose streams subprocess output and extra diagnostics.
func WithVerbose(v bool) Option {
	return func(s *Service) {
		s.verbose = v
	}
}

// WithDryRun renders the plan and command lines instead of encoding.
func WithDryRun(d bool) Option {
	return func(s *Service) {
		s.dryRun = d
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithReporter attaches a progress reporter (used by TUI).
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithJobID sets the job ID associated with reporter events.
func WithJobID(id string) Option {
	return func(s *Service) {
		s.jobID = id
	}
}

// NewService constructs a new Service with the provided options.
// It applies sensible defaults for missing components.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	s.enc = planner.ApplyDefaults(s.enc)
	return s
}

// Plan is the computed plan for one job, primarily for dry-run output.
type Plan struct {
	Job      model.EncodeJob
	Commands []string // shell-ready ffmpeg invocations, in execution order
}

// Result is the outcome of RunFile.
type Result struct {
	Source  probe.MediaInfo
	Job     model.EncodeJob
	Planned bool
	Plan    *Plan
	Output  *model.OutputVideo

	Overshot       bool
	OvershootRatio float64
	Elapsed        time.Duration
}

// RunFile executes the full pipeline for a single input file. An empty
// outputPath defaults to the input's name with a .webm extension.
// It never prints; when a Reporter is present, it emits progress and a final
// Result.
func (s *Service) RunFile(ctx context.Context, inputPath, outputPath string) (Result, error) {
	var res Result

	if s.ffprobePath == "" {
		return res, fmt.Errorf("ffprobe path is required")
	}
	if !s.dryRun && s.ffmpegPath == "" {
		return res, fmt.Errorf("ffmpeg path is required")
	}

	if outputPath == "" {
		outputPath = media.DefaultOutputPath(inputPath, s.enc.Proto)
	}
	if util.SamePath(inputPath, outputPath) {
		return res, fmt.Errorf("output path %s would overwrite the input", outputPath)
	}

	s.emitStage(progress.StageProbing, "Probing input")
	src, err := probe.Probe(ctx, inputPath, probe.Options{
		FFprobePath: s.ffprobePath,
		Verbose:     s.verbose,
		Runner:      s.runner,
	})
	if err != nil {
		s.emitFailed(outputPath, err)
		return res, err
	}
	res.Source = src

	s.emitStage(progress.StagePlanning, "Planning encode")
	job, err := planner.PlanJob(src, s.enc, outputPath)
	if err != nil {
		s.emitFailed(outputPath, err)
		return res, err
	}
	res.Job = job
	s.warnBelowFloor(job)

	if s.dryRun {
		res.Planned = true
		res.Plan = &Plan{Job: job, Commands: encoder.CommandLines(s.ffmpegPath, job)}
		s.emitPlanned(outputPath)
		return res, nil
	}

	started := time.Now()
	out, err := encoder.Encode(ctx, job, encoder.Options{
		FFmpegPath: s.ffmpegPath,
		Verbose:    s.verbose,
		Reporter:   s.reporter,
		JobID:      s.jobID,
		Runner:     s.runner,
	})
	if err != nil {
		s.emitFailed(outputPath, err)
		return res, fmt.Errorf("encode: %w", err)
	}
	res.Elapsed = time.Since(started)
	res.Output = &out
	res.Overshot, res.OvershootRatio = s.checkOvershoot(out.Bytes)

	s.emitSaved(out)
	return res, nil
}

// checkOvershoot reports whether the output exceeds the size target by more
// than 10%. Proto encodes have no target.
func (s *Service) checkOvershoot(outBytes int64) (bool, float64) {
	if s.enc.Proto || s.enc.TargetBytes <= 0 {
		return false, 0
	}
	ratio := float64(outBytes) / float64(s.enc.TargetBytes)
	return ratio > 1.10, ratio
}

func (s *Service) warnBelowFloor(job model.EncodeJob) {
	if !job.BelowFloor || s.reporter == nil {
		return
	}
	s.reporter.Log(progress.Log{
		JobID:  s.jobID,
		Stream: progress.StreamStderr,
		Line: fmt.Sprintf("warning: bitrate clamped to the %d kbps floor; output will exceed the size target",
			job.VideoBitrateBps/1000),
	})
}

func (s *Service) emitStage(stage progress.Stage, msg string) {
	if s.reporter == nil {
		return
	}
	s.reporter.Update(progress.Update{JobID: s.jobID, Stage: stage, Percent: -1, Message: msg})
}

// emitPlanned sends a final "planned" update and reporter result for TUI.
func (s *Service) emitPlanned(outPath string) {
	if s.reporter == nil {
		return
	}
	name := filepath.Base(outPath)
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageCompleted,
		Percent: 100,
		Message: fmt.Sprintf("Planned: %s (dry-run)", name),
	})
	s.reporter.Result(progress.Result{JobID: s.jobID, OutputPath: outPath})
}

// emitSaved sends a final "saved" update and reporter result for TUI.
func (s *Service) emitSaved(out model.OutputVideo) {
	if s.reporter == nil {
		return
	}
	name := filepath.Base(out.OutputPath)
	size := format.HumanizeBytes(out.Bytes)
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageCompleted,
		Percent: 100,
		Message: fmt.Sprintf("Saved: %s (%s)", name, size),
	})
	s.reporter.Result(progress.Result{
		JobID:      s.jobID,
		OutputPath: out.OutputPath,
		Bytes:      out.Bytes,
	})
}

func (s *Service) emitFailed(outPath string, err error) {
	if s.reporter == nil {
		return
	}
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageError,
		Percent: -1,
		Message: err.Error(),
	})
	s.reporter.Result(progress.Result{JobID: s.jobID, OutputPath: outPath, Err: err})
}
