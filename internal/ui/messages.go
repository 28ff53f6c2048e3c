package ui

import (
	"mbify/internal/pipeline"
	"mbify/internal/progress"
)

type depsCheckedMsg struct {
	FFmpegPath  string
	FFprobePath string
	Err         error
}

type jobUpdateMsg struct {
	U progress.Update
}

type jobLogMsg struct {
	L progress.Log
}

type jobResultMsg struct {
	R progress.Result
}

type batchDoneMsg struct {
	Res pipeline.BatchResult
	Err error
}
