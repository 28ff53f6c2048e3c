package encoder

import (
	"fmt"
	"os"
	"strconv"

	"mbify/internal/model"
	"mbify/internal/util"
)

// BuildPassArgs constructs ffmpeg arguments for one pass of a two-pass encode.
// Pass 1 writes statistics to the pass-log file and discards its output; pass 2
// reads them back and produces the real file. Both passes share the same trim,
// filter, and bitrate parameters so the statistics stay valid.
func BuildPassArgs(job model.EncodeJob, pass int, includeProgress bool) []string {
	args := baseArgs(job)
	args = append(args,
		"-c:v", "libvpx-vp9",
		"-g", "240",
		"-quality", "best",
		"-b:v", strconv.Itoa(job.VideoBitrateBps),
	)

	if pass == 1 {
		// No audio on the statistics pass; the muxer still needs a format
		// since the null device has no extension.
		args = append(args, "-pass", "1", "-passlogfile", job.PassLogPath, "-an", "-f", "webm")
		args = appendProgress(args, includeProgress)
		return append(args, os.DevNull)
	}

	args = append(args, "-pass", "2", "-passlogfile", job.PassLogPath)
	args = appendAudio(args, job)
	args = appendProgress(args, includeProgress)
	return append(args, job.OutputPath)
}

// BuildProtoArgs constructs ffmpeg arguments for a single-pass CRF preview
// encode. Fast deadline, no size targeting.
func BuildProtoArgs(job model.EncodeJob, includeProgress bool) []string {
	args := baseArgs(job)
	args = append(args,
		"-c:v", "libvpx-vp9",
		"-crf", strconv.Itoa(job.CRF),
		"-b:v", "0",
		"-quality", "realtime",
		"-deadline", "realtime",
	)
	args = appendAudio(args, job)
	args = appendProgress(args, includeProgress)
	return append(args, job.OutputPath)
}

// baseArgs builds the shared front of the command. The trim window goes on
// the input side: the filter chain sees only the windowed stream, and a speed
// change is free to stretch the output past end-start.
func baseArgs(job model.EncodeJob) []string {
	args := []string{"-hide_banner", "-y"}
	if job.Trimmed {
		if job.Start > 0 {
			args = append(args, "-ss", util.FormatSeconds(job.Start))
		}
		args = append(args, "-to", util.FormatSeconds(job.End))
	}
	args = append(args, "-i", job.InputPath)
	if job.VideoFilter != "" {
		args = append(args, "-vf", job.VideoFilter)
	}
	return args
}

func appendAudio(args []string, job model.EncodeJob) []string {
	if job.AudioBitrateBps <= 0 {
		return append(args, "-an")
	}
	if job.AudioFilter != "" {
		args = append(args, "-af", job.AudioFilter)
	}
	return append(args, "-c:a", "libopus", "-b:a", fmt.Sprintf("%dk", job.AudioBitrateBps/1000))
}

// CommandLines renders the exact invocations Encode would run, one shell-ready
// line per pass. Dry-run output goes through the same arg builders as real
// execution so the printed plan cannot drift from it.
func CommandLines(ffmpegPath string, job model.EncodeJob) []string {
	if job.Mode == model.ModeProto {
		path, args := withPriority(ffmpegPath, BuildProtoArgs(job, false), job.CPUPriority)
		return []string{util.ShellQuote(path, args)}
	}
	var lines []string
	for _, pass := range []int{1, 2} {
		path, args := withPriority(ffmpegPath, BuildPassArgs(job, pass, false), job.CPUPriority)
		lines = append(lines, util.ShellQuote(path, args))
	}
	return lines
}

func appendProgress(args []string, include bool) []string {
	if !include {
		return args
	}
	return append(args, "-progress", "pipe:1", "-nostats")
}
