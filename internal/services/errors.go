package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSpawn       = errors.New("spawn failure")
	ErrProcessExit = errors.New("process exit failure")
	ErrParse       = errors.New("parse failure")
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
	ErrCancelled   = errors.New("cancelled")
)

// Kind is a stable, caller-facing name for an error marker.
type Kind string

const (
	KindSpawn       Kind = "spawn_failure"
	KindProcessExit Kind = "process_exit_failure"
	KindParse       Kind = "parse_failure"
	KindValidation  Kind = "validation_failure"
	KindNotFound    Kind = "not_found"
	KindUnsupported Kind = "unsupported_operation"
	KindCancelled   Kind = "cancelled"
	KindInternal    Kind = "internal"
)

// maxTailLength bounds how much stderr is carried inside error messages.
const maxTailLength = 512

// ProcessError reports a non-zero exit from an external command. It matches
// ErrProcessExit under errors.Is.
type ProcessError struct {
	Command    string
	ExitCode   int
	StderrTail string
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if tail := strings.TrimSpace(e.StderrTail); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Is lets errors.Is(err, ErrProcessExit) match.
func (e *ProcessError) Is(target error) bool {
	return target == ErrProcessExit
}

// NewProcessError builds a ProcessError, trimming stderr to its last bytes.
func NewProcessError(command string, exitCode int, stderr string) *ProcessError {
	return &ProcessError{Command: command, ExitCode: exitCode, StderrTail: Tail(stderr, maxTailLength)}
}

// StderrTail returns the captured stderr tail of the first ProcessError in the
// chain, or "" when there is none.
func StderrTail(err error) string {
	var procErr *ProcessError
	if errors.As(err, &procErr) {
		return procErr.StderrTail
	}
	return ""
}

// Tail returns at most n trailing bytes of s, trimmed of surrounding whitespace.
func Tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[len(s)-n:])
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProcessExit
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf maps an error to its caller-facing kind. Unmarked errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrSpawn):
		return KindSpawn
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrProcessExit):
		return KindProcessExit
	default:
		return KindInternal
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
