package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed caller input (empty URL, bad chunk
	// parameters, blank query text).
	ErrValidation = errors.New("validation error")
	// ErrInvalidTransition marks an attempt to move a video or job to a
	// status the lifecycle does not permit.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNotReady marks operations that require a fully processed video,
	// such as querying one that has not reached the complete status.
	ErrNotReady = errors.New("not ready")
	// ErrNotFound marks lookups for videos, jobs, or chunks that do not
	// exist in the catalog.
	ErrNotFound = errors.New("not found")
	// ErrExternal marks failures reported by collaborators outside our
	// control: the transcription server, the embedding provider, the
	// audio downloader, or a vector index backend.
	ErrExternal = errors.New("external service error")
	// ErrConfiguration marks startup problems a config edit must fix.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a failure is worth re-running via the retry
// command. Validation and lifecycle errors will fail identically on retry;
// external collaborator failures may not.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrConfiguration):
		return false
	default:
		return true
	}
}

// ErrorHint returns a short operator-facing classification for log output.
func ErrorHint(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "check the submitted input"
	case errors.Is(err, ErrInvalidTransition):
		return "lifecycle conflict; inspect video status"
	case errors.Is(err, ErrNotReady):
		return "wait for processing to finish"
	case errors.Is(err, ErrNotFound):
		return "record missing from catalog"
	case errors.Is(err, ErrConfiguration):
		return "fix configuration and restart"
	case errors.Is(err, ErrExternal):
		return "upstream service failure; retry may succeed"
	default:
		return ""
	}
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
