// Package media derives output file names for encodes.
package media

import (
	"path/filepath"
	"strings"
)

const (
	// OutputExt is the container extension for every encode; the pipeline
	// produces VP9/Opus in WebM only.
	OutputExt = ".webm"
	// ProtoSuffix marks preview encodes so they never overwrite the real
	// output.
	ProtoSuffix = "-PROTO"
)

// DefaultOutputPath places the output next to the input as <base>.webm,
// with the proto suffix when previewing.
func DefaultOutputPath(inputPath string, proto bool) string {
	dir := filepath.Dir(inputPath)
	return filepath.Join(dir, baseName(inputPath)+protoSuffix(proto)+OutputExt)
}

// SceneOutputPath names one scene's output inside outputDir as
// <base>-S<label>[-PROTO].webm, matching the zero-padded scene label.
func SceneOutputPath(outputDir, inputPath, label string, proto bool) string {
	name := baseName(inputPath) + "-S" + label + protoSuffix(proto) + OutputExt
	return filepath.Join(outputDir, name)
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func protoSuffix(proto bool) string {
	if proto {
		return ProtoSuffix
	}
	return ""
}
