package media

import (
	"path/filepath"
	"testing"
)

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input string
		proto bool
		want  string
	}{
		{input: "/videos/clip.mp4", want: "/videos/clip.webm"},
		{input: "/videos/clip.mp4", proto: true, want: "/videos/clip-PROTO.webm"},
		{input: "clip.mkv", want: "clip.webm"},
		{input: "/videos/no-ext", want: "/videos/no-ext.webm"},
	}
	for _, tt := range tests {
		if got := DefaultOutputPath(tt.input, tt.proto); got != filepath.FromSlash(tt.want) {
			t.Errorf("DefaultOutputPath(%q, %v) = %q, want %q", tt.input, tt.proto, got, tt.want)
		}
	}
}

func TestSceneOutputPath(t *testing.T) {
	got := SceneOutputPath("out_scenes", "/videos/movie.mkv", "007", false)
	want := filepath.Join("out_scenes", "movie-S007.webm")
	if got != want {
		t.Errorf("SceneOutputPath() = %q, want %q", got, want)
	}

	got = SceneOutputPath("out_scenes", "movie.mkv", "012", true)
	want = filepath.Join("out_scenes", "movie-S012-PROTO.webm")
	if got != want {
		t.Errorf("SceneOutputPath() = %q, want %q", got, want)
	}
}
