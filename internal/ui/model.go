// Package ui is the bubbletea dashboard for scene-batch encodes.
package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mbify/internal/model"
	"mbify/internal/pipeline"
	"mbify/internal/progress"
	"mbify/internal/scenes"
	"mbify/internal/util/deps"
)

// Options carries everything the dashboard needs to run a batch.
type Options struct {
	InputPath   string
	CSVPath     string
	OutputDir   string
	FFmpegPath  string // optional override; PATH lookup otherwise
	FFprobePath string
	Enc         model.EncodeOptions
	Verbose     bool
	DryRun      bool
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	// App state (deps)
	depsChecked bool
	depsErr     error
	ffmpegPath  string
	ffprobePath string

	// Jobs, one per scene, in CSV order
	opts     Options
	jobOrder []string
	jobs     map[string]*jobState
	batchErr error

	// UI
	width, height int
	styles        Styles

	// Internal event channel used by reporter to feed tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, segs []scenes.Segment, opts Options) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	jobs := make(map[string]*jobState, len(segs))
	order := make([]string, 0, len(segs))
	for _, seg := range segs {
		js := newJobState(seg, sty)
		jobs[js.id] = &js
		order = append(order, js.id)
	}

	return Model{
		ctx:      c,
		cancel:   cancel,
		opts:     opts,
		jobs:     jobs,
		jobOrder: order,
		styles:   sty,
		eventCh:  make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		sp := m.jobs[id].spinner
		cmds = append(cmds, sp.Tick)
	}
	// Listen for reporter events
	cmds = append(cmds, m.listenEventsCmd())
	// Kick off dependency check
	cmds = append(cmds, m.checkDepsCmd())
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case depsCheckedMsg:
		m.depsChecked = true
		m.depsErr = msg.Err
		m.ffmpegPath = msg.FFmpegPath
		m.ffprobePath = msg.FFprobePath
		if m.depsErr != nil {
			for _, id := range m.jobOrder {
				js := m.jobs[id]
				js.stage = progress.StageError
				js.status = "Dependency error: " + m.depsErr.Error()
				js.err = m.depsErr
				js.done = true
			}
			m.batchErr = m.depsErr
			return m, tea.Quit
		}
		return m, m.startBatchCmd()

	case jobUpdateMsg:
		u := msg.U
		if js, ok := m.jobs[u.JobID]; ok {
			js.stage = u.Stage
			js.percent = u.Percent
			js.status = u.Message
			if u.Bytes != nil {
				js.bytes = *u.Bytes
			}
		}
	case jobLogMsg:
		l := msg.L
		if js, ok := m.jobs[l.JobID]; ok {
			line := strings.TrimRight(l.Line, "\r\n")
			if len(js.logsRing) > 1000 {
				js.logsRing = js.logsRing[1:]
			}
			js.logsRing = append(js.logsRing, line)
		}
	case jobResultMsg:
		r := msg.R
		if js, ok := m.jobs[r.JobID]; ok {
			js.done = true
			js.err = r.Err
			if r.Err == nil {
				js.stage = progress.StageCompleted
				js.percent = 100
				js.outputPath = r.OutputPath
				js.bytes = r.Bytes
			} else {
				js.stage = progress.StageError
				js.status = r.Err.Error()
				js.percent = -1
			}
		}
	case batchDoneMsg:
		m.batchErr = msg.Err
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	// Keep listening for events
	cmds = append(cmds, m.listenEventsCmd())
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	summary := m.viewSummary()
	if summary != "" {
		return m.viewHeader() + "\n\n" + m.viewJobs() + "\n" + summary
	}
	return m.viewHeader() + "\n\n" + m.viewJobs()
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return batchDoneMsg{Err: m.ctx.Err()}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m Model) checkDepsCmd() tea.Cmd {
	return func() tea.Msg {
		ff, err := deps.FindFFmpeg(m.opts.FFmpegPath)
		if err != nil {
			return depsCheckedMsg{Err: err}
		}
		fp, err := deps.FindFFprobe(m.opts.FFprobePath)
		if err != nil {
			return depsCheckedMsg{Err: err}
		}
		return depsCheckedMsg{FFmpegPath: ff, FFprobePath: fp}
	}
}

// startBatchCmd launches the batch in one goroutine. Scenes run sequentially
// inside the service; the reporter feeds the dashboard per scene.
func (m Model) startBatchCmd() tea.Cmd {
	return func() tea.Msg {
		go m.runBatch()
		return nil
	}
}

func (m Model) runBatch() {
	svc := pipeline.NewService(
		pipeline.WithFFmpegPath(m.ffmpegPath),
		pipeline.WithFFprobePath(m.ffprobePath),
		pipeline.WithEncodeOptions(m.opts.Enc),
		pipeline.WithVerbose(m.opts.Verbose),
		pipeline.WithDryRun(m.opts.DryRun),
		pipeline.WithReporter(teaReporter{ch: m.eventCh}),
	)
	res, err := svc.RunScenes(m.ctx, m.opts.InputPath, m.opts.CSVPath, m.opts.OutputDir)
	select {
	case m.eventCh <- batchDoneMsg{Res: res, Err: err}:
	case <-m.ctx.Done():
	}
}

type teaReporter struct {
	ch chan tea.Msg
}

func (r teaReporter) Update(u progress.Update) {
	// Block on completion messages to ensure they're delivered
	if u.Stage == progress.StageCompleted || u.Stage == progress.StageError {
		r.ch <- jobUpdateMsg{U: u}
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}
func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}
func (r teaReporter) Result(res progress.Result) {
	// Always block on Result messages - they're critical
	r.ch <- jobResultMsg{R: res}
}
