package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mbify/internal/model"
)

const scenesCSV = `Scene Number,Start Time (seconds),End Time (seconds)
1,0.000,10.000
2,10.000,40.000
3,40.000,100.000
`

func writeScenesCSV(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenes.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunScenes(t *testing.T) {
	tmp := t.TempDir()
	input := filepath.Join(tmp, "movie.mkv")
	csvPath := writeScenesCSV(t, tmp, scenesCSV)
	outDir := filepath.Join(tmp, "out_scenes")
	rep := &recordingReporter{}
	fr := newFakeRunner(t)

	s := NewService(
		WithFFmpegPath("/bin/ffmpeg"),
		WithFFprobePath("/bin/ffprobe"),
		WithEncodeOptions(model.EncodeOptions{TargetBytes: model.TargetBytesFromMiB(20)}),
		WithRunner(fr),
		WithReporter(rep),
	)

	res, err := s.RunScenes(context.Background(), input, csvPath, outDir)
	if err != nil {
		t.Fatalf("RunScenes() error: %v", err)
	}
	if len(res.Scenes) != 3 || res.Failed != 0 {
		t.Fatalf("scenes = %d, failed = %d, want 3/0", len(res.Scenes), res.Failed)
	}
	if res.ExceedsTarget {
		t.Error("ExceedsTarget = true, want false")
	}

	// Two-pass per scene: six ffmpeg invocations total.
	if len(fr.ffmpegCalls) != 6 {
		t.Errorf("got %d ffmpeg invocations, want 6", len(fr.ffmpegCalls))
	}

	var total int64
	for i, sr := range res.Scenes {
		want := filepath.Join(outDir, "movie-S00"+string(rune('1'+i))+".webm")
		if sr.Job.OutputPath != want {
			t.Errorf("scene %d output = %q, want %q", i+1, sr.Job.OutputPath, want)
		}
		if sr.Output == nil {
			t.Fatalf("scene %d missing output", i+1)
		}
		if _, err := os.Stat(sr.Job.OutputPath); err != nil {
			t.Errorf("scene %d output not written: %v", i+1, err)
		}
		if !sr.Job.Trimmed {
			t.Errorf("scene %d job not trimmed", i+1)
		}
		total += sr.Job.TargetBytes
	}
	// The per-scene budgets must add up to the aggregate target exactly.
	if total != model.TargetBytesFromMiB(20) {
		t.Errorf("sum of scene budgets = %d, want %d", total, model.TargetBytesFromMiB(20))
	}

	// Longest scene gets the largest budget.
	if !(res.Scenes[2].Job.TargetBytes > res.Scenes[1].Job.TargetBytes &&
		res.Scenes[1].Job.TargetBytes > res.Scenes[0].Job.TargetBytes) {
		t.Errorf("budgets not proportional to duration: %d, %d, %d",
			res.Scenes[0].Job.TargetBytes, res.Scenes[1].Job.TargetBytes, res.Scenes[2].Job.TargetBytes)
	}
}

func TestRunScenes_FailureIsolated(t *testing.T) {
	tmp := t.TempDir()
	input := filepath.Join(tmp, "movie.mkv")
	csvPath := writeScenesCSV(t, tmp, scenesCSV)
	outDir := filepath.Join(tmp, "out")
	rep := &recordingReporter{}
	fr := newFakeRunner(t)
	fr.failWhen = func(outputPath string) bool {
		return strings.Contains(outputPath, "-S002")
	}

	s := NewService(
		WithFFmpegPath("/bin/ffmpeg"),
		WithFFprobePath("/bin/ffprobe"),
		WithEncodeOptions(model.EncodeOptions{TargetBytes: model.TargetBytesFromMiB(20)}),
		WithRunner(fr),
		WithReporter(rep),
	)

	res, err := s.RunScenes(context.Background(), input, csvPath, outDir)
	if err != nil {
		t.Fatalf("RunScenes() error: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", res.Failed)
	}
	if res.Scenes[1].Err == nil || !strings.Contains(res.Scenes[1].Err.Error(), "scene 2") {
		t.Errorf("scene 2 error = %v", res.Scenes[1].Err)
	}
	// The batch continued past the failure.
	if res.Scenes[0].Output == nil || res.Scenes[2].Output == nil {
		t.Error("surviving scenes missing outputs")
	}
	// A failure result was reported for the dead scene.
	foundErr := false
	for _, r := range rep.results {
		if r.JobID == "S002" && r.Err != nil {
			foundErr = true
		}
	}
	if !foundErr {
		t.Errorf("no failure result for S002 in %+v", rep.results)
	}
}

func TestRunScenes_DryRun(t *testing.T) {
	tmp := t.TempDir()
	input := filepath.Join(tmp, "movie.mkv")
	csvPath := writeScenesCSV(t, tmp, scenesCSV)
	outDir := filepath.Join(tmp, "out")
	fr := newFakeRunner(t)

	s := NewService(
		WithFFmpegPath("/bin/ffmpeg"),
		WithFFprobePath("/bin/ffprobe"),
		WithEncodeOptions(model.EncodeOptions{TargetBytes: model.TargetBytesFromMiB(20)}),
		WithDryRun(true),
		WithRunner(fr),
	)

	res, err := s.RunScenes(context.Background(), input, csvPath, outDir)
	if err != nil {
		t.Fatalf("RunScenes() error: %v", err)
	}
	if !res.Planned {
		t.Error("Planned = false, want true")
	}
	for i, sr := range res.Scenes {
		if len(sr.Commands) != 2 {
			t.Errorf("scene %d: %d command lines, want 2", i+1, len(sr.Commands))
		}
	}
	if len(fr.ffmpegCalls) != 0 {
		t.Errorf("dry-run must not invoke ffmpeg, got %d calls", len(fr.ffmpegCalls))
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("dry-run must not create the output directory")
	}
}

func TestRunScenes_TailClampAndBounds(t *testing.T) {
	tmp := t.TempDir()
	input := filepath.Join(tmp, "movie.mkv")
	fr := newFakeRunner(t)

	// Last scene runs past the probed 100s duration; it must be clamped.
	csvPath := writeScenesCSV(t, tmp, `Scene Number,Start Time (seconds),End Time (seconds)
1,0.000,60.000
2,60.000,103.500
`)
	s := NewService(
		WithFFmpegPath("/bin/ffmpeg"),
		WithFFprobePath("/bin/ffprobe"),
		WithEncodeOptions(model.EncodeOptions{TargetBytes: model.TargetBytesFromMiB(20)}),
		WithDryRun(true),
		WithRunner(fr),
	)
	res, err := s.RunScenes(context.Background(), input, csvPath, filepath.Join(tmp, "out"))
	if err != nil {
		t.Fatalf("RunScenes() error: %v", err)
	}
	if end := res.Scenes[1].Job.End; end != 100 {
		t.Errorf("clamped scene end = %g, want 100", end)
	}

	// A scene starting past the source is a hard error.
	badCSV := writeScenesCSV(t, tmp, `Scene Number,Start Time (seconds),End Time (seconds)
1,150.000,160.000
`)
	if _, err := s.RunScenes(context.Background(), input, badCSV, filepath.Join(tmp, "out")); err == nil {
		t.Fatal("expected error for scene past the source duration")
	}
}
