package scenes

import (
	"strings"
	"testing"
)

const sampleCSV = `Scene Number,Start Frame,Start Timecode,Start Time (seconds),End Frame,End Timecode,End Time (seconds)
1,1,00:00:00.000,0.000,240,00:00:10.010,10.010
2,241,00:00:10.010,10.052,480,00:00:20.020,20.020
3,481,00:00:20.020,20.020,720,00:00:30.030,30.030
`

func TestParseStitchesEnds(t *testing.T) {
	segs, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	// Scene 1 ends where scene 2 starts, not at its own recorded end.
	if segs[0].End != 10.052 {
		t.Errorf("segment 1 end = %g, want 10.052", segs[0].End)
	}
	if segs[1].End != 20.020 {
		t.Errorf("segment 2 end = %g, want 20.020", segs[1].End)
	}
	// The last scene keeps its recorded end.
	if segs[2].End != 30.030 {
		t.Errorf("segment 3 end = %g, want 30.030", segs[2].End)
	}
	if segs[0].Label != "001" || segs[2].Label != "003" {
		t.Errorf("labels = %q, %q, want 001, 003", segs[0].Label, segs[2].Label)
	}
	if d := segs[1].Duration(); d <= 0 {
		t.Errorf("segment 2 duration = %g, want > 0", d)
	}
}

func TestParseSkipsBannerRow(t *testing.T) {
	csv := "Timecode List:,00:00:10.010,00:00:20.020\n" + sampleCSV
	segs, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(segs) != 3 {
		t.Errorf("got %d segments, want 3", len(segs))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{
			name: "empty file",
			csv:  "",
			want: "empty file",
		},
		{
			name: "missing start column",
			csv:  "Scene Number,End Time (seconds)\n1,10\n",
			want: "Start Time (seconds)",
		},
		{
			name: "no data rows",
			csv:  "Scene Number,Start Time (seconds),End Time (seconds)\n",
			want: "no scenes",
		},
		{
			name: "bad scene number",
			csv:  "Scene Number,Start Time (seconds),End Time (seconds)\nx,0,10\n",
			want: "bad scene number",
		},
		{
			name: "bad start time",
			csv:  "Scene Number,Start Time (seconds),End Time (seconds)\n1,abc,10\n",
			want: "bad start time",
		},
		{
			name: "zero-length last scene",
			csv:  "Scene Number,Start Time (seconds),End Time (seconds)\n1,10,10\n",
			want: "not after start",
		},
		{
			name: "non-increasing starts",
			csv: "Scene Number,Start Time (seconds),End Time (seconds)\n" +
				"1,20,30\n2,10,40\n",
			want: "not after start",
		},
		{
			name: "negative start",
			csv:  "Scene Number,Start Time (seconds),End Time (seconds)\n1,-5,10\n",
			want: "negative start",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.csv))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
