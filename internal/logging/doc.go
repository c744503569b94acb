// Package logging assembles structured slog loggers and formatting helpers used
// across vidfetch.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so log lines carry the transform
// job or upload they concern plus the HTTP request id. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
