package planner

import (
	"errors"
	"testing"

	"mbify/internal/model"
)

func TestVideoBitrate(t *testing.T) {
	tests := []struct {
		name        string
		targetBytes int64
		durationSec float64
		audioBps    int
		overhead    float64
		floorBps    int
		want        int
		wantFloor   bool
	}{
		{
			// floor(50*8*1024*1024*0.99/600) - 128000
			name:        "50 MiB over 600s with 128k audio",
			targetBytes: 50 * 1024 * 1024,
			durationSec: 600,
			audioBps:    128000,
			overhead:    0.01,
			floorBps:    50000,
			want:        564060,
		},
		{
			name:        "muted audio keeps full budget",
			targetBytes: 10 * 1024 * 1024,
			durationSec: 100,
			audioBps:    0,
			overhead:    0.02,
			floorBps:    50000,
			want:        822083, // floor(10*8*1024*1024*0.98/100)
		},
		{
			name:        "tiny budget clamps to floor",
			targetBytes: 1024 * 1024,
			durationSec: 600,
			audioBps:    96000,
			overhead:    0.02,
			floorBps:    50000,
			want:        50000,
			wantFloor:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VideoBitrate(tt.targetBytes, tt.durationSec, tt.audioBps, tt.overhead, tt.floorBps)
			if err != nil {
				t.Fatalf("VideoBitrate() error: %v", err)
			}
			if got.VideoBps != tt.want {
				t.Errorf("VideoBps = %d, want %d", got.VideoBps, tt.want)
			}
			if got.BelowFloor != tt.wantFloor {
				t.Errorf("BelowFloor = %v, want %v", got.BelowFloor, tt.wantFloor)
			}
		})
	}
}

func TestVideoBitrateNeverOvershoots(t *testing.T) {
	// videoBps*D + audioBps*D must stay within the usable bit budget for
	// any unclamped result.
	cases := []struct {
		bytes    int64
		duration float64
		audio    int
	}{
		{bytes: 100 * 1024 * 1024, duration: 37.3, audio: 96000},
		{bytes: 5 * 1024 * 1024, duration: 13.37, audio: 128000},
		{bytes: 1 << 30, duration: 7201.5, audio: 0},
	}
	const overhead = 0.02
	for _, c := range cases {
		got, err := VideoBitrate(c.bytes, c.duration, c.audio, overhead, 1)
		if err != nil {
			t.Fatalf("VideoBitrate() error: %v", err)
		}
		if got.BelowFloor {
			continue
		}
		usable := float64(c.bytes) * 8 * (1 - overhead)
		spent := float64(got.VideoBps+c.audio) * c.duration
		if spent > usable {
			t.Errorf("budget overshoot: spent %.0f bits of %.0f usable (bytes=%d dur=%g)",
				spent, usable, c.bytes, c.duration)
		}
	}
}

func TestVideoBitrateInvalidDuration(t *testing.T) {
	for _, d := range []float64{0, -10} {
		_, err := VideoBitrate(1024, d, 0, 0.02, 50000)
		if err == nil {
			t.Fatalf("VideoBitrate(duration=%g) expected error", d)
		}
		var itw *model.InvalidTrimWindowError
		if !errors.As(err, &itw) {
			t.Errorf("error type = %T, want *model.InvalidTrimWindowError", err)
		}
	}
}

func TestFloorBytes(t *testing.T) {
	// The floor-implied size must produce a bitrate at or above the floor.
	dur := 42.5
	audio := 96000
	floor := 50000
	overhead := 0.02
	b := FloorBytes(dur, audio, overhead, floor)
	got, err := VideoBitrate(b, dur, audio, overhead, floor)
	if err != nil {
		t.Fatalf("VideoBitrate() error: %v", err)
	}
	if got.BelowFloor {
		t.Errorf("FloorBytes(%g) = %d still below floor", dur, b)
	}
	// One byte less must dip under the floor.
	under, err := VideoBitrate(b-1, dur, audio, overhead, floor)
	if err != nil {
		t.Fatalf("VideoBitrate() error: %v", err)
	}
	if !under.BelowFloor {
		t.Errorf("FloorBytes(%g)-1 = %d should be below floor", dur, b-1)
	}
}
