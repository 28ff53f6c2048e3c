package encoder

import (
	"strings"
	"testing"

	"mbify/internal/model"
)

func TestBuildPassArgs(t *testing.T) {
	job := model.EncodeJob{
		InputPath:       "/tmp/input.mp4",
		OutputPath:      "/tmp/out.webm",
		PassLogPath:     "/tmp/out_passlog",
		VideoBitrateBps: 564060,
		AudioBitrateBps: 96000,
		AudioFilter:     "atempo=2",
		VideoFilter:     "setpts=0.5*PTS",
		Start:           90,
		End:             150,
		Trimmed:         true,
		Mode:            model.ModeTwoPass,
	}

	tests := []struct {
		name            string
		job             model.EncodeJob
		pass            int
		includeProgress bool
		wantContains    []string
		wantNotContains []string
		wantLast        string
	}{
		{
			name: "pass one discards output and audio",
			job:  job,
			pass: 1,
			wantContains: []string{
				"-ss 90.000", "-to 150.000", "-i /tmp/input.mp4",
				"-vf setpts=0.5*PTS",
				"-c:v libvpx-vp9", "-g 240", "-quality best", "-b:v 564060",
				"-pass 1", "-passlogfile /tmp/out_passlog",
				"-an", "-f webm",
			},
			wantNotContains: []string{"-c:a", "-af", "-crf", "-progress"},
			wantLast:        "/dev/null",
		},
		{
			name: "pass two writes audio and output",
			job:  job,
			pass: 2,
			wantContains: []string{
				"-pass 2", "-passlogfile /tmp/out_passlog",
				"-af atempo=2", "-c:a libopus", "-b:a 96k",
			},
			wantNotContains: []string{"-an", "-f webm", "-crf"},
			wantLast:        "/tmp/out.webm",
		},
		{
			name: "muted job drops the audio chain",
			job: func() model.EncodeJob {
				j := job
				j.AudioBitrateBps = 0
				j.AudioFilter = ""
				return j
			}(),
			pass:            2,
			wantContains:    []string{"-an"},
			wantNotContains: []string{"-c:a", "-b:a"},
			wantLast:        "/tmp/out.webm",
		},
		{
			name: "untrimmed job has no seek args",
			job: func() model.EncodeJob {
				j := job
				j.Trimmed = false
				j.Start = 0
				j.End = 0
				return j
			}(),
			pass:            2,
			wantNotContains: []string{"-ss", "-to"},
			wantLast:        "/tmp/out.webm",
		},
		{
			// Slow motion doubles the output duration; the input window must
			// stay untouched so the full clip survives the stretch.
			name: "slow motion keeps the full input window",
			job: func() model.EncodeJob {
				j := job
				j.Start = 10
				j.End = 20
				j.Speed = 0.5
				j.VideoFilter = "setpts=2*PTS"
				j.EffectiveDuration = 20
				return j
			}(),
			pass:            2,
			wantContains:    []string{"-ss 10.000", "-to 20.000", "-vf setpts=2*PTS"},
			wantNotContains: []string{"-t 10.000", "-t 20.000"},
			wantLast:        "/tmp/out.webm",
		},
		{
			name:            "progress flags on request",
			job:             job,
			pass:            2,
			includeProgress: true,
			wantContains:    []string{"-progress pipe:1", "-nostats"},
			wantLast:        "/tmp/out.webm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := BuildPassArgs(tt.job, tt.pass, tt.includeProgress)
			argsStr := strings.Join(args, " ")
			for _, want := range tt.wantContains {
				if !strings.Contains(argsStr, want) {
					t.Errorf("args missing %q, got: %v", want, args)
				}
			}
			for _, notWant := range tt.wantNotContains {
				if strings.Contains(argsStr, notWant) {
					t.Errorf("args should not contain %q, got: %v", notWant, args)
				}
			}
			if args[len(args)-1] != tt.wantLast {
				t.Errorf("last arg = %v, want %v", args[len(args)-1], tt.wantLast)
			}
		})
	}
}

func TestBuildProtoArgs(t *testing.T) {
	job := model.EncodeJob{
		InputPath:       "/tmp/input.mp4",
		OutputPath:      "/tmp/out-PROTO.webm",
		CRF:             30,
		AudioBitrateBps: 96000,
		Mode:            model.ModeProto,
	}
	args := BuildProtoArgs(job, false)
	argsStr := strings.Join(args, " ")
	for _, want := range []string{
		"-c:v libvpx-vp9", "-crf 30", "-b:v 0",
		"-quality realtime", "-deadline realtime",
		"-c:a libopus", "-b:a 96k",
	} {
		if !strings.Contains(argsStr, want) {
			t.Errorf("args missing %q, got: %v", want, args)
		}
	}
	for _, notWant := range []string{"-pass", "-passlogfile", "-g 240", "-quality best"} {
		if strings.Contains(argsStr, notWant) {
			t.Errorf("args should not contain %q, got: %v", notWant, args)
		}
	}
	if args[len(args)-1] != job.OutputPath {
		t.Errorf("last arg = %v, want %v", args[len(args)-1], job.OutputPath)
	}
}
