package planner

import (
	"fmt"
	"strconv"
	"strings"

	"mbify/internal/model"
	"mbify/internal/probe"
)

// FilterOp is one named operation in a video filter chain.
type FilterOp struct {
	Name string // scale, subtitle-burn, speed-change, fps, custom-insert
	Expr string // rendered ffmpeg filter text
}

// FilterSpec is an ordered filter chain. Order matters: the hardsub sandwich
// must see trim-shifted timestamps before the speed filter rescales them.
type FilterSpec []FilterOp

// Render joins the chain into an ffmpeg -vf argument.
func (fs FilterSpec) Render() string {
	if len(fs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fs))
	for _, op := range fs {
		parts = append(parts, op.Expr)
	}
	return strings.Join(parts, ",")
}

// ScalePlan records the smallest-dimension scaling decision.
type ScalePlan struct {
	Target int // requested smallest dimension in px
	Num    int // source-to-target ratio, reduced to lowest terms
	Den    int
	Algo   model.Scaler
}

// PlanScale reduces min(width,height)/target to lowest terms and picks the
// algorithm: an exact integer ratio downscales cleanly with nearest,
// anything else defaults to bicubic. An explicit override always wins.
func PlanScale(width, height, target int, override model.Scaler) ScalePlan {
	smallest := width
	if height < width {
		smallest = height
	}
	g := gcd(smallest, target)
	plan := ScalePlan{Target: target, Num: smallest / g, Den: target / g}

	switch {
	case override != model.ScalerAuto:
		plan.Algo = override
	case plan.Den == 1:
		plan.Algo = model.ScalerNearest
	default:
		plan.Algo = model.ScalerBicubic
	}
	return plan
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// BuildFilters produces the ordered video chain and the audio tempo chain
// for a job. start is the resolved trim start in source seconds.
//
// Chain order: subtitle burn (inside a setpts sandwich that shifts
// timestamps by -start so burned text aligns with the trimmed stream, and
// placed before the speed filter so the later speed change rescales video
// and burned subtitles together) → speed → scale → fps → custom append.
func BuildFilters(src probe.MediaInfo, opts model.EncodeOptions, start float64) (video FilterSpec, audio string, scale *ScalePlan) {
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}

	if opts.HardsubPath != "" {
		if start > 0 {
			video = append(video, FilterOp{
				Name: "subtitle-burn",
				Expr: fmt.Sprintf("setpts=PTS+%s/TB", trimFloat(start)),
			})
		}
		video = append(video, FilterOp{
			Name: "subtitle-burn",
			Expr: "subtitles=" + escapeFilterArg(opts.HardsubPath),
		})
		if start > 0 {
			video = append(video, FilterOp{
				Name: "subtitle-burn",
				Expr: "setpts=PTS-STARTPTS",
			})
		}
	}

	if speed != 1 {
		video = append(video, FilterOp{
			Name: "speed-change",
			Expr: fmt.Sprintf("setpts=%s*PTS", trimFloat(1/speed)),
		})
	}

	if opts.ScaleTarget > 0 {
		sp := PlanScale(src.Width, src.Height, opts.ScaleTarget, opts.Scaler)
		scale = &sp
		video = append(video, FilterOp{
			Name: "scale",
			Expr: fmt.Sprintf("scale='if(gt(iw,ih),-2,%d)':'if(gt(iw,ih),%d,-2)':flags=%s",
				sp.Target, sp.Target, sp.Algo),
		})
	}

	if opts.FPS > 0 {
		video = append(video, FilterOp{
			Name: "fps",
			Expr: "fps=" + strconv.Itoa(opts.FPS),
		})
	}

	// Escape hatch: appended last, never validated. A bad chain surfaces as
	// an encoder error downstream.
	if opts.AppendFilters != "" {
		video = append(video, FilterOp{Name: "custom-insert", Expr: opts.AppendFilters})
	}

	if speed != 1 && !opts.Mute {
		audio = atempoChain(speed)
	}
	return video, audio, scale
}

// atempoChain decomposes a speed factor into atempo filters. atempo only
// accepts [0.5, 2.0] per instance, so factors outside that range are built
// from doubling/halving steps.
func atempoChain(speed float64) string {
	var steps []string
	switch {
	case speed > 2.0:
		for speed > 2.0 {
			steps = append(steps, "atempo=2.0")
			speed /= 2.0
		}
		steps = append(steps, "atempo="+trimFloat(speed))
	case speed < 0.5:
		for speed < 0.5 {
			steps = append(steps, "atempo=0.5")
			speed /= 0.5
		}
		steps = append(steps, "atempo="+trimFloat(speed))
	default:
		steps = append(steps, "atempo="+trimFloat(speed))
	}
	return strings.Join(steps, ",")
}

// escapeFilterArg quotes a path for use inside a filter graph, where ':'
// and ''' are metacharacters.
func escapeFilterArg(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, `:`, `\:`)
	return "'" + s + "'"
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
