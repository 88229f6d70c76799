package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrFormat        = errors.New("unreadable media")
	ErrAnalysis      = errors.New("unusable analysis output")
	ErrCoverage      = errors.New("insufficient coverage")
	ErrResource      = errors.New("resource unavailable")
	ErrPersistence   = errors.New("persistence failure")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// SegmentScoped reports whether err only concerns the segment being processed.
// Resource, persistence, format, coverage, and cancellation errors abort the
// whole video run instead.
func SegmentScoped(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrResource), errors.Is(err, ErrPersistence):
		return false
	case errors.Is(err, ErrFormat), errors.Is(err, ErrCoverage), errors.Is(err, ErrConfiguration):
		return false
	default:
		return true
	}
}

// ErrorDetails is the operator-facing summary of a failure.
type ErrorDetails struct {
	Kind    string
	Message string
	Hint    string
}

// Details classifies err for logs and CLI output.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Message: strings.TrimSpace(err.Error())}
	switch {
	case errors.Is(err, ErrExternalTool):
		details.Kind = "tool"
		details.Hint = "check that ffmpeg/ffprobe are installed and the source file is readable"
	case errors.Is(err, ErrFormat):
		details.Kind = "format"
		details.Hint = "the source could not be probed; verify the file is a valid video"
	case errors.Is(err, ErrAnalysis):
		details.Kind = "analysis"
		details.Hint = "the model returned unusable output; retry the segment or switch models"
	case errors.Is(err, ErrCoverage):
		details.Kind = "coverage"
		details.Hint = "segmentation covered too little of the timeline; the source was moved to the error directory"
	case errors.Is(err, ErrResource):
		details.Kind = "resource"
		details.Hint = "free accelerator memory or check the model endpoint, then resume"
	case errors.Is(err, ErrPersistence):
		details.Kind = "persistence"
		details.Hint = "check the state directory is writable and not full"
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		details.Kind = "configuration"
		details.Hint = "review the configuration file"
	case errors.Is(err, ErrNotFound):
		details.Kind = "not_found"
		details.Hint = "run 'smartcut list' to see known sessions"
	case errors.Is(err, context.Canceled):
		details.Kind = "canceled"
		details.Hint = "resume the run to continue from the last checkpoint"
	default:
		details.Kind = "unknown"
		details.Hint = "check logs for details"
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
