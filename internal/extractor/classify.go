package extractor

import (
	"errors"
	"strings"

	"vidfetch/internal/services"
)

// Failure is a coarse reason for an extractor failure, recognized from its
// stderr.
type Failure string

const (
	FailureNone          Failure = ""
	FailureUnavailable   Failure = "unavailable"
	FailurePrivate       Failure = "private"
	FailureAgeRestricted Failure = "age_restricted"
)

var (
	agePatterns         = []string{"age-restricted", "age restricted", "confirm your age", "inappropriate for some users"}
	unavailablePatterns = []string{"video unavailable", "this video is not available", "has been removed", "does not exist"}
	privatePatterns     = []string{"private", "login", "log in", "protected", "members-only"}
)

// sourceError tags a failure reported by the extractor binary.
type sourceError struct{ err error }

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

// FromExtractor tags err as coming from the extractor so Classify will read
// its stderr. A nil err stays nil.
func FromExtractor(err error) error {
	if err == nil {
		return nil
	}
	var src *sourceError
	if errors.As(err, &src) {
		return err
	}
	return &sourceError{err: err}
}

// Classify inspects a failed extractor run. Only process exit failures tagged
// by FromExtractor are classified; output from other tools is FailureNone.
func Classify(err error) Failure {
	var src *sourceError
	if err == nil || !errors.As(err, &src) || services.KindOf(err) != services.KindProcessExit {
		return FailureNone
	}
	text := strings.ToLower(services.StderrTail(err))
	if text == "" {
		text = strings.ToLower(err.Error())
	}
	switch {
	case containsAny(text, agePatterns):
		return FailureAgeRestricted
	case containsAny(text, unavailablePatterns):
		return FailureUnavailable
	case containsAny(text, privatePatterns):
		return FailurePrivate
	default:
		return FailureNone
	}
}

// Message is the user-facing description of a classified failure.
func (f Failure) Message() string {
	switch f {
	case FailureUnavailable:
		return "this video is unavailable or private"
	case FailurePrivate:
		return "this video is private or requires login"
	case FailureAgeRestricted:
		return "this video is age-restricted and cannot be downloaded"
	default:
		return ""
	}
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
