package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mbify/internal/scenes"
)

// Run launches the scene dashboard and blocks until the batch finishes or the
// user quits. It returns an error when any scene failed.
func Run(ctx context.Context, opts Options) error {
	segs, err := scenes.Load(opts.CSVPath)
	if err != nil {
		return err
	}

	m := NewModel(ctx, segs, opts)
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		if fm.batchErr != nil && fm.batchErr != context.Canceled {
			return fm.batchErr
		}
		var failed []string
		for _, id := range fm.jobOrder {
			js := fm.jobs[id]
			if js != nil && js.err != nil {
				failed = append(failed, fmt.Sprintf("- %s: %s", id, js.err.Error()))
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d scene(s) failed:\n%s", len(failed), strings.Join(failed, "\n"))
		}
	}
	return nil
}
