package encoder

import (
	"strconv"
	"strings"

	"mbify/internal/progress"
)

// ProgressState accumulates ffmpeg -progress key/value lines and emits an
// update whenever a progress marker arrives.
type ProgressState struct {
	OutTimeMs int64 // microseconds despite the name; ffmpeg quirk
	SpeedStr  string
	TotalSize int64
}

// UpdateFromLine feeds one stdout line into the state. durationSec is the
// expected output duration (post-trim, post-speed) used to derive a percent;
// pass <= 0 duration to report unknown.
func (ps *ProgressState) UpdateFromLine(line, jobID string, durationSec float64, stage progress.Stage) (u progress.Update, ok bool) {
	kv := strings.SplitN(line, "=", 2)
	if len(kv) != 2 {
		return progress.Update{}, false
	}

	key := strings.TrimSpace(kv[0])
	val := strings.TrimSpace(kv[1])

	switch key {
	case "out_time_ms":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.OutTimeMs = v
		}
	case "speed":
		ps.SpeedStr = val
	case "total_size":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.TotalSize = v
		}
	case "progress":
		percent := -1.0
		if durationSec > 0 {
			den := durationSec * 1_000_000
			percent = (float64(ps.OutTimeMs) / den) * 100.0
			if percent > 100 {
				percent = 100
			}
		}

		var speedPtr *string
		if ps.SpeedStr != "" {
			s := ps.SpeedStr
			speedPtr = &s
		}

		var bytesPtr *int64
		if ps.TotalSize > 0 {
			b := ps.TotalSize
			bytesPtr = &b
		}

		return progress.Update{
			JobID:   jobID,
			Stage:   stage,
			Percent: percent,
			Speed:   speedPtr,
			Bytes:   bytesPtr,
			Message: stageMessage(stage),
		}, true
	}

	return progress.Update{}, false
}

func stageMessage(stage progress.Stage) string {
	switch stage {
	case progress.StagePassOne:
		return "Pass 1 (analysis)"
	case progress.StagePassTwo:
		return "Pass 2 (encoding)"
	default:
		return "Encoding"
	}
}
