package ui

import (
	"fmt"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"mbify/internal/progress"
	"mbify/internal/scenes"
)

type jobState struct {
	id     string
	window string // scene time window shown next to the label
	stage  progress.Stage
	status string
	err    error
	done   bool

	outputPath string
	bytes      int64
	percent    float64 // -1 means unknown

	spinner spinner.Model
	bar     bubblesprogress.Model

	// Optional: recent logs (kept small)
	logsRing []string
}

func newJobState(seg scenes.Segment, styles Styles) jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return jobState{
		id:      "S" + seg.Label,
		window:  fmt.Sprintf("%.1fs to %.1fs", seg.Start, seg.End),
		stage:   progress.StageProbing,
		status:  "Queued",
		percent: -1,
		spinner: sp,
		bar:     bar,
	}
}
