package pipeline

import (
	"context"
	"fmt"
	"time"

	"mbify/internal/encoder"
	"mbify/internal/model"
	"mbify/internal/planner"
	"mbify/internal/probe"
	"mbify/internal/progress"
	"mbify/internal/scenes"
	"mbify/internal/util"
	"mbify/internal/util/media"
)

// SceneResult is the per-scene outcome of a batch run.
type SceneResult struct {
	Scene    scenes.Segment
	Job      model.EncodeJob
	Output   *model.OutputVideo
	Commands []string // dry-run only
	Err      error
}

// JobID returns the reporter job ID for this scene.
func (r SceneResult) JobID() string {
	return "S" + r.Scene.Label
}

// BatchResult summarizes a scene-batch run. Individual scene failures are
// recorded here rather than aborting the batch.
type BatchResult struct {
	Source        probe.MediaInfo
	Scenes        []SceneResult
	Planned       bool
	ExceedsTarget bool // all scenes floor-bound; total output exceeds the aggregate target
	Failed        int
	Elapsed       time.Duration
}

// RunScenes encodes every scene from the CSV into outputDir, splitting the
// aggregate size target across scenes in proportion to their durations.
// Scenes run sequentially; a failed scene is logged and the batch continues,
// so one bad scene never discards completed work.
func (s *Service) RunScenes(ctx context.Context, inputPath, csvPath, outputDir string) (BatchResult, error) {
	var res BatchResult

	if s.ffprobePath == "" {
		return res, fmt.Errorf("ffprobe path is required")
	}
	if !s.dryRun && s.ffmpegPath == "" {
		return res, fmt.Errorf("ffmpeg path is required")
	}

	segs, err := scenes.Load(csvPath)
	if err != nil {
		return res, err
	}

	s.emitStage(progress.StageProbing, "Probing input")
	src, err := probe.Probe(ctx, inputPath, probe.Options{
		FFprobePath: s.ffprobePath,
		Verbose:     s.verbose,
		Runner:      s.runner,
	})
	if err != nil {
		return res, err
	}
	res.Source = src

	// Scene detectors can place the last cut slightly past the container
	// duration; clamp the tail but reject scenes that start past the end.
	for i := range segs {
		if segs[i].Start >= src.DurationSec {
			return res, fmt.Errorf("scene %d starts at %gs, past the %gs source",
				segs[i].Number, segs[i].Start, src.DurationSec)
		}
		if segs[i].End > src.DurationSec {
			segs[i].End = src.DurationSec
		}
	}

	shares, err := s.allocate(src, segs, &res)
	if err != nil {
		return res, err
	}

	if !s.dryRun {
		if err := util.EnsureDir(outputDir); err != nil {
			return res, fmt.Errorf("ensure output dir: %w", err)
		}
	}

	started := time.Now()
	for i, seg := range segs {
		if ctx.Err() != nil {
			// Cancelled: stop handing out work; completed scenes stay.
			break
		}
		sr := s.runScene(ctx, src, seg, shareAt(shares, i), outputDir)
		if sr.Err != nil {
			res.Failed++
		}
		res.Scenes = append(res.Scenes, sr)
	}
	res.Planned = s.dryRun
	res.Elapsed = time.Since(started)
	return res, nil
}

// allocate splits the aggregate byte budget across scenes. Proto mode has no
// size target, so every scene encodes at the preview quality instead.
func (s *Service) allocate(src probe.MediaInfo, segs []scenes.Segment, res *BatchResult) ([]int64, error) {
	if s.enc.Proto {
		return nil, nil
	}

	speed := s.enc.Speed
	if speed <= 0 {
		speed = 1
	}
	audioBps := s.enc.AudioBitrateBps()
	if !src.HasAudio {
		audioBps = 0
	}
	durs := make([]float64, len(segs))
	for i, seg := range segs {
		durs[i] = seg.Duration() / speed
	}

	s.emitStage(progress.StagePlanning, fmt.Sprintf("Allocating budget across %d scenes", len(segs)))
	alloc, err := planner.AllocateScenes(s.enc.TargetBytes, durs, audioBps, s.enc.OverheadFraction, s.enc.MinVideoKbps*1000)
	if err != nil {
		return nil, err
	}
	res.ExceedsTarget = alloc.ExceedsTarget
	if alloc.ExceedsTarget && s.reporter != nil {
		s.reporter.Log(progress.Log{
			JobID:  s.jobID,
			Stream: progress.StreamStderr,
			Line: fmt.Sprintf("warning: every scene is bitrate-floor bound; total output will be ~%d bytes, over the %d byte target",
				alloc.TotalBytes, s.enc.TargetBytes),
		})
	}
	return alloc.Shares, nil
}

// runScene plans and encodes one scene. Errors are returned in the result,
// never propagated, so the caller can continue with the remaining scenes.
func (s *Service) runScene(ctx context.Context, src probe.MediaInfo, seg scenes.Segment, share int64, outputDir string) SceneResult {
	sr := SceneResult{Scene: seg}
	jobID := sr.JobID()

	opts := s.enc
	opts.Trim = model.TrimWindow{Start: seg.Start, End: seg.End, HasStart: true, HasEnd: true}
	if share > 0 {
		opts.TargetBytes = share
	}
	outputPath := media.SceneOutputPath(outputDir, src.Path, seg.Label, opts.Proto)

	job, err := planner.PlanJob(src, opts, outputPath)
	if err != nil {
		sr.Err = err
		s.emitSceneFailed(jobID, outputPath, err)
		return sr
	}
	job.SceneIndex = seg.Number
	sr.Job = job

	if s.dryRun {
		sr.Commands = encoder.CommandLines(s.ffmpegPath, job)
		return sr
	}

	out, err := encoder.Encode(ctx, job, encoder.Options{
		FFmpegPath: s.ffmpegPath,
		Verbose:    s.verbose,
		Reporter:   s.reporter,
		JobID:      jobID,
		Runner:     s.runner,
	})
	if err != nil {
		sr.Err = fmt.Errorf("scene %d: %w", seg.Number, err)
		s.emitSceneFailed(jobID, outputPath, sr.Err)
		return sr
	}
	sr.Output = &out

	if s.reporter != nil {
		s.reporter.Update(progress.Update{
			JobID:   jobID,
			Stage:   progress.StageCompleted,
			Percent: 100,
			Message: fmt.Sprintf("Saved: %s", outputPath),
		})
		s.reporter.Result(progress.Result{JobID: jobID, OutputPath: out.OutputPath, Bytes: out.Bytes})
	}
	return sr
}

func (s *Service) emitSceneFailed(jobID, outputPath string, err error) {
	if s.reporter == nil {
		return
	}
	s.reporter.Update(progress.Update{
		JobID:   jobID,
		Stage:   progress.StageError,
		Percent: -1,
		Message: err.Error(),
	})
	s.reporter.Result(progress.Result{JobID: jobID, OutputPath: outputPath, Err: err})
}

func shareAt(shares []int64, i int) int64 {
	if i < len(shares) {
		return shares[i]
	}
	return 0
}
