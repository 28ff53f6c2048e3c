package util

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTimestamp converts a trim time string into seconds. Accepts plain
// seconds ("90", "90.5") and clock form ("MM:SS", "HH:MM:SS", "HH:MM:SS.ms").
// An empty string returns 0 with ok=false so callers can distinguish
// "not given" from an explicit zero.
func ParseTimestamp(s string) (seconds float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}

	if !strings.Contains(s, ":") {
		v, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return 0, false, fmt.Errorf("invalid time %q: %w", s, perr)
		}
		if v < 0 {
			return 0, false, fmt.Errorf("invalid time %q: negative", s)
		}
		return v, true, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false, fmt.Errorf("invalid time %q: too many separators", s)
	}
	var total float64
	for _, p := range parts {
		v, perr := strconv.ParseFloat(p, 64)
		if perr != nil {
			return 0, false, fmt.Errorf("invalid time %q: %w", s, perr)
		}
		if v < 0 {
			return 0, false, fmt.Errorf("invalid time %q: negative component", s)
		}
		total = total*60 + v
	}
	return total, true, nil
}

// FormatSeconds renders a seconds value the way ffmpeg -ss/-to expects.
func FormatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
