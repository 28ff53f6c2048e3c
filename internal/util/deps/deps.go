package deps

import (
	"fmt"
	"os"
	"os/exec"
)

// NotFoundError reports a required external tool that could not be located.
type NotFoundError struct {
	Tool string // "ffmpeg" or "ffprobe"
	Path string // explicit path that failed; empty for a PATH lookup
}

func (e *NotFoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("could not find %s at %q", e.Tool, e.Path)
	}
	return fmt.Sprintf("could not find %s in PATH. Please install ffmpeg.", e.Tool)
}

// FindFFmpeg returns the path to the ffmpeg binary. If customPath is
// non-empty, it tries that path or looks it up in PATH.
func FindFFmpeg(customPath string) (string, error) {
	return find("ffmpeg", customPath)
}

// FindFFprobe returns the path to the ffprobe binary in PATH.
func FindFFprobe(customPath string) (string, error) {
	return find("ffprobe", customPath)
}

func find(tool, customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", &NotFoundError{Tool: tool, Path: customPath}
	}
	if p, err := exec.LookPath(tool); err == nil {
		return p, nil
	}
	return "", &NotFoundError{Tool: tool}
}
