package planner

import (
	"math"

	"mbify/internal/model"
)

// Defaults for the configurable policy constants. Overhead reserves a slice
// of the byte budget for container muxing; the floor keeps a best-effort
// encode from degenerating into unwatchable output.
const (
	DefaultOverheadFraction = 0.02
	DefaultMinVideoKbps     = 50
	DefaultAudioKbps        = 96
)

// Bitrate is the calculator's result.
type Bitrate struct {
	VideoBps   int
	BelowFloor bool // value was raised to the floor; encode proceeds with a warning
}

// VideoBitrate converts a byte budget into a video bitrate:
//
//	usableBits = targetBytes * 8 * (1 - overhead)
//	videoBps   = floor(usableBits / duration) - audioBps
//
// Rounding is always downward; overshooting the byte budget is the one
// failure mode this must never produce. A result under floorBps is raised
// to floorBps and flagged BelowFloor rather than failing, so the caller can
// still deliver best-effort output.
func VideoBitrate(targetBytes int64, durationSec float64, audioBps int, overheadFraction float64, floorBps int) (Bitrate, error) {
	if durationSec <= 0 {
		return Bitrate{}, &model.InvalidTrimWindowError{
			Duration: durationSec,
			Reason:   "non-positive effective duration",
		}
	}
	usableBits := float64(targetBytes) * 8 * (1 - overheadFraction)
	videoBps := int(math.Floor(usableBits/durationSec)) - audioBps
	if videoBps < floorBps {
		return Bitrate{VideoBps: floorBps, BelowFloor: true}, nil
	}
	return Bitrate{VideoBps: videoBps}, nil
}

// FloorBytes returns the smallest byte budget for which VideoBitrate stays
// at or above floorBps for the given duration. Used by the scene allocator
// to find each segment's minimum viable size.
func FloorBytes(durationSec float64, audioBps int, overheadFraction float64, floorBps int) int64 {
	bits := float64(floorBps+audioBps) * durationSec
	return int64(math.Ceil(bits / 8 / (1 - overheadFraction)))
}
