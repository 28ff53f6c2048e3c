// Package probe discovers media metadata (duration, resolution, frame rate)
// by shelling out to ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"mbify/internal/util"
)

// MediaInfo is the read-only metadata for one input file.
type MediaInfo struct {
	Path        string
	DurationSec float64
	Width       int
	Height      int
	FrameRate   float64
	HasAudio    bool
}

// Error wraps any failure to read or parse a file's metadata.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options control ffprobe execution.
type Options struct {
	FFprobePath string
	Verbose     bool
	Runner      util.CmdRunner
}

// ffprobe -print_format json output, limited to the fields we read.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		FrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe runs ffprobe against path and returns its metadata. Failures are
// reported as *Error.
func Probe(ctx context.Context, path string, opts Options) (MediaInfo, error) {
	if opts.FFprobePath == "" {
		return MediaInfo{}, &Error{Path: path, Err: fmt.Errorf("ffprobe path is required")}
	}
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}

	res, err := runner.Run(ctx, util.CmdSpec{
		Path: opts.FFprobePath,
		Args: []string{
			"-v", "quiet",
			"-print_format", "json",
			"-show_format",
			"-show_streams",
			path,
		},
		Verbose:       opts.Verbose,
		CaptureStdout: true,
	})
	if err != nil {
		return MediaInfo{}, &Error{Path: path, Err: fmt.Errorf("ffprobe failed: %w", err)}
	}

	var out ffprobeOutput
	if jerr := json.Unmarshal(res.Stdout, &out); jerr != nil {
		return MediaInfo{}, &Error{Path: path, Err: fmt.Errorf("parse ffprobe output: %w", jerr)}
	}

	return fromFFprobe(path, out)
}

func fromFFprobe(path string, out ffprobeOutput) (MediaInfo, error) {
	duration, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	if err != nil || duration <= 0 {
		return MediaInfo{}, &Error{Path: path, Err: fmt.Errorf("no usable duration in ffprobe output")}
	}

	info := MediaInfo{Path: path, DurationSec: duration}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.Width == 0 {
				info.Width = s.Width
				info.Height = s.Height
				info.FrameRate = parseFrameRate(s.FrameRate)
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return MediaInfo{}, &Error{Path: path, Err: fmt.Errorf("no video stream found")}
	}
	return info, nil
}

// parseFrameRate converts ffprobe's rational "num/den" form. Unknown or
// malformed rates yield 0.
func parseFrameRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	if !found {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
