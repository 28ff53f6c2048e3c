// Package scenes loads SceneDetect-style CSV scene lists and turns them into
// trim segments on the source timeline.
package scenes

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column headers as written by SceneDetect's list-scenes output.
const (
	colNumber = "Scene Number"
	colStart  = "Start Time (seconds)"
	colEnd    = "End Time (seconds)"
)

// Segment is one scene on the source timeline. End is already resolved: a
// scene runs until the next scene starts, and the last scene until its own
// recorded end.
type Segment struct {
	Number int     // scene number from the CSV, usually 1-based
	Label  string  // zero-padded form used in output names, e.g. "007"
	Start  float64 // seconds
	End    float64 // seconds
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Load reads and parses a scene CSV file.
func Load(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene csv: %w", err)
	}
	defer f.Close()
	segs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return segs, nil
}

// Parse reads a SceneDetect CSV from r. It requires the Scene Number and
// start/end seconds columns; other columns are ignored. SceneDetect sometimes
// prefixes the table with a "Timecode List:" banner row, which is skipped.
//
// Segment ends are stitched: scene i ends where scene i+1 starts, so trims
// cover the source without gaps even when the CSV's own end times have
// detector slack. The last scene keeps its recorded end.
func Parse(r io.Reader) ([]Segment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // banner row has a different width

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	idxNum, ok := header[colNumber]
	if !ok {
		return nil, fmt.Errorf("scene csv: missing %q column", colNumber)
	}
	idxStart, ok := header[colStart]
	if !ok {
		return nil, fmt.Errorf("scene csv: missing %q column", colStart)
	}
	idxEnd, ok := header[colEnd]
	if !ok {
		return nil, fmt.Errorf("scene csv: missing %q column", colEnd)
	}

	var segs []Segment
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scene csv: %w", err)
		}
		row++
		if len(rec) <= idxNum || len(rec) <= idxStart || len(rec) <= idxEnd {
			return nil, fmt.Errorf("scene csv: row %d has %d columns, need at least %d", row, len(rec), idxEnd+1)
		}
		num, err := strconv.Atoi(strings.TrimSpace(rec[idxNum]))
		if err != nil {
			return nil, fmt.Errorf("scene csv: row %d: bad scene number %q", row, rec[idxNum])
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(rec[idxStart]), 64)
		if err != nil {
			return nil, fmt.Errorf("scene csv: row %d: bad start time %q", row, rec[idxStart])
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(rec[idxEnd]), 64)
		if err != nil {
			return nil, fmt.Errorf("scene csv: row %d: bad end time %q", row, rec[idxEnd])
		}
		segs = append(segs, Segment{
			Number: num,
			Label:  fmt.Sprintf("%03d", num),
			Start:  start,
			End:    end,
		})
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("scene csv: no scenes found")
	}

	// Stitch ends to the next scene's start.
	for i := 0; i < len(segs)-1; i++ {
		segs[i].End = segs[i+1].Start
	}

	if err := validate(segs); err != nil {
		return nil, err
	}
	return segs, nil
}

// readHeader locates the header row, tolerating one banner row before it.
func readHeader(cr *csv.Reader) (map[string]int, error) {
	for attempt := 0; attempt < 2; attempt++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("scene csv: empty file")
		}
		if err != nil {
			return nil, fmt.Errorf("scene csv: %w", err)
		}
		idx := make(map[string]int, len(rec))
		for i, name := range rec {
			idx[strings.TrimSpace(name)] = i
		}
		if _, ok := idx[colNumber]; ok {
			return idx, nil
		}
	}
	return nil, fmt.Errorf("scene csv: header row with %q not found", colNumber)
}

func validate(segs []Segment) error {
	for i, s := range segs {
		if s.Start < 0 {
			return fmt.Errorf("scene %d: negative start time %g", s.Number, s.Start)
		}
		if s.End <= s.Start {
			return fmt.Errorf("scene %d: end %g not after start %g", s.Number, s.End, s.Start)
		}
		if i > 0 && s.Start < segs[i-1].End {
			return fmt.Errorf("scene %d: overlaps previous scene (starts %g before %g)",
				s.Number, s.Start, segs[i-1].End)
		}
	}
	return nil
}
