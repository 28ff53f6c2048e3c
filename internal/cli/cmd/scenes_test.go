package cmd

import (
	"errors"
	"fmt"
	"testing"

	"mbify/internal/util/deps"
)

func TestUIExitError(t *testing.T) {
	wrapped := fmt.Errorf("dashboard: %w", &deps.NotFoundError{Tool: "ffmpeg"})
	if ee := uiExitError(wrapped); ee.Code != ExitMissingDep {
		t.Errorf("missing-tool Code = %d, want %d", ee.Code, ExitMissingDep)
	}
	if ee := uiExitError(errors.New("2 scene(s) failed")); ee.Code != ExitEncodeError {
		t.Errorf("scene-failure Code = %d, want %d", ee.Code, ExitEncodeError)
	}
}
