package staging

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidfetch/internal/logging"
)

// Filter selects which entries of a directory a sweep considers.
type Filter struct {
	// Prefix restricts the sweep to names starting with it; empty matches all.
	Prefix string
	// Files and Dirs choose the entry types. Both false means files only.
	Files bool
	Dirs  bool
}

func (f Filter) matches(entry os.DirEntry) bool {
	if f.Prefix != "" && !strings.HasPrefix(entry.Name(), f.Prefix) {
		return false
	}
	if entry.IsDir() {
		return f.Dirs
	}
	if !entry.Type().IsRegular() {
		return false
	}
	return f.Files || !f.Dirs
}

// CleanStaleResult contains the outcome of a stale entry cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes entries of dir matched by filter whose modification time
// is older than maxAge. Entries that vanish mid-sweep are not errors. A
// missing dir yields an empty result.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, filter Filter, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !filter.matches(entry) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if entry.IsDir() {
			err = os.RemoveAll(path)
		} else {
			err = os.Remove(path)
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale entry",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "staging_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check directory permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Debug("removed stale entry",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}

// Usage summarizes the entries a filter matches.
type Usage struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// MeasureUsage counts the entries of dir matched by filter and their total
// size, recursing into matched directories. A missing dir is empty usage.
func MeasureUsage(dir string, filter Filter) (Usage, error) {
	var usage Usage
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return usage, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return usage, nil
		}
		return usage, err
	}

	for _, entry := range entries {
		if !filter.matches(entry) {
			continue
		}
		if entry.IsDir() {
			size, _ := dirSize(filepath.Join(dir, entry.Name()))
			usage.Entries++
			usage.Bytes += size
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		usage.Entries++
		usage.Bytes += info.Size()
	}
	return usage, nil
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Ignore errors, best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
