package model

import "fmt"

// Scaler names an ffmpeg scaling algorithm.
type Scaler string

const (
	ScalerAuto    Scaler = "" // pick nearest/bicubic from the scale ratio
	ScalerNearest Scaler = "nearest"
	ScalerBicubic Scaler = "bicubic"
	ScalerLanczos Scaler = "lanczos"
)

// ValidScaler reports whether s is an accepted --scaler value.
func ValidScaler(s Scaler) bool {
	switch s {
	case ScalerAuto, ScalerNearest, ScalerBicubic, ScalerLanczos:
		return true
	}
	return false
}

// PassMode selects the encoding strategy for a job.
type PassMode string

const (
	// ModeTwoPass is the size-accurate default: pass 1 gathers statistics,
	// pass 2 produces the output.
	ModeTwoPass PassMode = "two-pass"
	// ModeProto is a fast single-pass CRF encode for previewing clip and
	// filter decisions. Not size-accurate.
	ModeProto PassMode = "proto"
)

// Proto CRF bounds. VP9 accepts 0-63; anything under 30 defeats the point
// of a fast preview.
const (
	ProtoCRFDefault = 30
	ProtoCRFMin     = 30
	ProtoCRFMax     = 63
)

// TargetBytesFromMiB converts a MiB flag value to bytes once, at the
// boundary.
func TargetBytesFromMiB(miB int) int64 {
	return int64(miB) * 1024 * 1024
}

// TrimWindow is an optional start/end pair in source-timeline seconds.
type TrimWindow struct {
	Start    float64
	End      float64
	HasStart bool
	HasEnd   bool
}

// InvalidTrimWindowError reports a trim window that cannot produce a
// positive effective duration within the source.
type InvalidTrimWindowError struct {
	Start    float64
	End      float64
	Duration float64
	Reason   string
}

func (e *InvalidTrimWindowError) Error() string {
	return fmt.Sprintf("invalid trim window [%g, %g] for %gs source: %s",
		e.Start, e.End, e.Duration, e.Reason)
}

// Resolve validates the window against the source duration and returns the
// concrete start/end, defaulting absent bounds to the full source.
func (w TrimWindow) Resolve(sourceDuration float64) (start, end float64, err error) {
	start = 0
	end = sourceDuration
	if w.HasStart {
		start = w.Start
	}
	if w.HasEnd {
		end = w.End
	}
	switch {
	case start < 0 || start > sourceDuration:
		return 0, 0, &InvalidTrimWindowError{Start: start, End: end, Duration: sourceDuration,
			Reason: "start outside source"}
	case end < 0 || end > sourceDuration:
		return 0, 0, &InvalidTrimWindowError{Start: start, End: end, Duration: sourceDuration,
			Reason: "end outside source"}
	case end <= start:
		return 0, 0, &InvalidTrimWindowError{Start: start, End: end, Duration: sourceDuration,
			Reason: "end must be greater than start"}
	}
	return start, end, nil
}

// EncodeOptions holds the per-job policy as assembled from flags. All policy
// values travel explicitly with the job; the engine reads no ambient
// configuration.
type EncodeOptions struct {
	TargetBytes      int64   // output size budget
	AudioBitrateKbps int     // Opus bitrate; ignored when Mute
	Mute             bool    // drop the audio stream
	Speed            float64 // playback speed factor; 1.0 = unchanged
	Trim             TrimWindow
	ScaleTarget      int    // target smallest dimension in px; 0 = no scaling
	Scaler           Scaler // explicit algorithm; empty = auto
	FPS              int    // target frame rate; 0 = source
	HardsubPath      string // subtitle file to burn in; empty = none
	AppendFilters    string // raw filter text appended last, unvalidated
	Proto            bool   // single-pass CRF preview mode
	CRF              int    // proto quality; clamped to [ProtoCRFMin, ProtoCRFMax]
	OverheadFraction float64
	MinVideoKbps     int
	CPUPriority      string // "", "low", "high"
}

// AudioBitrateBps returns the effective audio bitrate in bits/sec, zero
// when muted.
func (o EncodeOptions) AudioBitrateBps() int {
	if o.Mute {
		return 0
	}
	return o.AudioBitrateKbps * 1000
}

// EncodeJob is a fully self-contained encode plan, constructed by the
// planner and consumed once by the executor.
type EncodeJob struct {
	InputPath   string
	OutputPath  string
	PassLogPath string // two-pass statistics file prefix

	EffectiveDuration float64 // post-trim, post-speed seconds
	TargetBytes       int64   // size budget this job encodes toward; 0 in proto mode
	VideoBitrateBps   int     // two-pass target; 0 in proto mode
	AudioBitrateBps   int     // 0 when muted
	CRF               int     // proto quality; 0 in two-pass mode
	Mode              PassMode

	VideoFilter string  // rendered -vf chain; empty = none
	AudioFilter string  // rendered -af chain (atempo); empty = none
	Start       float64 // trim start in source seconds
	End         float64 // trim end in source seconds
	Trimmed     bool    // whether -ss/-to apply
	Speed       float64

	BelowFloor  bool // bitrate was raised to the quality floor
	SceneIndex  int  // 1-based scene number in batch mode; 0 for single-file
	CPUPriority string
}

// OutputVideo captures encoding results.
type OutputVideo struct {
	OutputPath      string
	Bytes           int64
	UsedCRF         int // 0 in two-pass mode
	UsedBitrateKbps int // 0 in proto mode
}
