// Package planner converts a size budget and user options into concrete
// encode jobs: bitrate arithmetic, filter-chain construction, and the
// scene-batch byte allocator.
package planner

import (
	"path/filepath"
	"strings"

	"mbify/internal/model"
	"mbify/internal/probe"
)

// PlanJob composes probe metadata, trim window, filters, and the bitrate
// calculation into one self-contained EncodeJob.
func PlanJob(src probe.MediaInfo, opts model.EncodeOptions, outputPath string) (model.EncodeJob, error) {
	opts = ApplyDefaults(opts)

	start, end, err := opts.Trim.Resolve(src.DurationSec)
	if err != nil {
		return model.EncodeJob{}, err
	}

	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}
	effective := (end - start) / speed

	// A source with no audio stream encodes as muted regardless of the flag.
	if !src.HasAudio {
		opts.Mute = true
	}

	video, audio, _ := BuildFilters(src, opts, start)

	job := model.EncodeJob{
		InputPath:         src.Path,
		OutputPath:        outputPath,
		PassLogPath:       passLogPath(outputPath),
		EffectiveDuration: effective,
		AudioBitrateBps:   opts.AudioBitrateBps(),
		VideoFilter:       video.Render(),
		AudioFilter:       audio,
		Start:             start,
		End:               end,
		Trimmed:           opts.Trim.HasStart || opts.Trim.HasEnd,
		Speed:             speed,
		CPUPriority:       opts.CPUPriority,
	}

	if opts.Proto {
		job.Mode = model.ModeProto
		job.CRF = clampCRF(opts.CRF)
		return job, nil
	}

	br, err := VideoBitrate(opts.TargetBytes, effective, job.AudioBitrateBps, opts.OverheadFraction, opts.MinVideoKbps*1000)
	if err != nil {
		return model.EncodeJob{}, err
	}
	job.Mode = model.ModeTwoPass
	job.TargetBytes = opts.TargetBytes
	job.VideoBitrateBps = br.VideoBps
	job.BelowFloor = br.BelowFloor
	return job, nil
}

// ApplyDefaults fills policy zero values. Callers that need the effective
// policy outside PlanJob (the batch allocator) use the same normalization.
func ApplyDefaults(opts model.EncodeOptions) model.EncodeOptions {
	if opts.OverheadFraction <= 0 {
		opts.OverheadFraction = DefaultOverheadFraction
	}
	if opts.MinVideoKbps <= 0 {
		opts.MinVideoKbps = DefaultMinVideoKbps
	}
	if opts.AudioBitrateKbps <= 0 {
		opts.AudioBitrateKbps = DefaultAudioKbps
	}
	return opts
}

func clampCRF(crf int) int {
	if crf == 0 {
		return model.ProtoCRFDefault
	}
	if crf < model.ProtoCRFMin {
		return model.ProtoCRFMin
	}
	if crf > model.ProtoCRFMax {
		return model.ProtoCRFMax
	}
	return crf
}

// passLogPath derives the two-pass statistics file prefix from the output
// path, next to the output so concurrent runs in different directories
// never collide.
func passLogPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+"_passlog")
}
