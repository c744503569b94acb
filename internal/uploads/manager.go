package uploads

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"vidfetch/internal/logging"
	"vidfetch/internal/metrics"
	"vidfetch/internal/services"
	"vidfetch/internal/staging"
)

// Defaults for the upload store.
const (
	DefaultMaxBytes      int64 = 500 * 1024 * 1024
	DefaultRetention           = time.Hour
	DefaultSweepInterval       = 10 * time.Minute
	defaultExtension           = ".mp4"
	partialPrefix              = ".upload-"
)

var (
	acceptedExtensions = []string{".mp4", ".webm", ".mov", ".avi", ".mkv", ".ogv", ".3gp", ".flv", ".mpeg", ".mpg", ".ts", ".m4v"}
	acceptedMIMETypes  = []string{
		"video/mp4", "video/webm", "video/quicktime", "video/x-msvideo", "video/x-matroska",
		"video/ogg", "video/3gpp", "video/x-flv", "video/mpeg", "video/mp2t",
	}
	idPattern = regexp.MustCompile(`^[a-f0-9]{32}$`)
)

// File is one stored upload. ID is the only handle callers see.
type File struct {
	ID           string    `json:"fileId"`
	Path         string    `json:"-"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Options configures a Manager. Zero values take the package defaults.
type Options struct {
	Dir           string
	MaxBytes      int64
	Retention     time.Duration
	SweepInterval time.Duration
	Logger        *slog.Logger
}

// Manager stores uploaded media under a single root and expires it after the
// retention window. Files may disappear at any time once expired, so callers
// resolve an id immediately before use.
type Manager struct {
	dir           string
	maxBytes      int64
	retention     time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger

	mu        sync.Mutex
	scheduler *cron.Cron
}

// NewManager creates the upload root if needed.
func NewManager(opts Options) (*Manager, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrValidation, "uploads", "init", "upload dir is required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	m := &Manager{
		dir:           dir,
		maxBytes:      opts.MaxBytes,
		retention:     opts.Retention,
		sweepInterval: opts.SweepInterval,
		logger:        logging.NewComponentLogger(opts.Logger, "uploads"),
	}
	if m.maxBytes <= 0 {
		m.maxBytes = DefaultMaxBytes
	}
	if m.retention <= 0 {
		m.retention = DefaultRetention
	}
	if m.sweepInterval <= 0 {
		m.sweepInterval = DefaultSweepInterval
	}
	return m, nil
}

// Dir is the upload root.
func (m *Manager) Dir() string { return m.dir }

// MaxBytes is the largest upload accepted.
func (m *Manager) MaxBytes() int64 { return m.maxBytes }

// Retention is how long a stored file lives.
func (m *Manager) Retention() time.Duration { return m.retention }

// ValidID reports whether id has the shape of an upload identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Accepts reports whether an upload is an allowed video type. Either the
// extension or the declared media type must be on the allowlist.
func Accepts(originalName, contentType string) bool {
	if slices.Contains(acceptedExtensions, extensionOf(originalName)) {
		return true
	}
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return slices.Contains(acceptedMIMETypes, strings.ToLower(mediaType))
}

// CheckSize rejects a declared upload size above the limit.
func (m *Manager) CheckSize(n int64) error {
	if n > m.maxBytes {
		metrics.UploadsRejectedTotal.WithLabelValues("size").Inc()
		return services.Wrap(services.ErrValidation, "uploads", "check size",
			fmt.Sprintf("file is too large (max %d MB)", m.maxBytes/(1024*1024)), nil)
	}
	return nil
}

// Save stores r under a fresh random id. The size limit is enforced while
// copying, so an oversized body is rejected even when its declared size lied.
func (m *Manager) Save(r io.Reader, originalName, contentType string) (File, error) {
	if !Accepts(originalName, contentType) {
		metrics.UploadsRejectedTotal.WithLabelValues("type").Inc()
		return File{}, services.Wrap(services.ErrValidation, "uploads", "save",
			"invalid file type; upload a video file (mp4, webm, mov, mkv, avi, ...)", nil)
	}
	id, err := newID()
	if err != nil {
		return File{}, fmt.Errorf("generate upload id: %w", err)
	}
	ext := extensionOf(originalName)
	if ext == "" {
		ext = defaultExtension
	}

	partial, err := os.CreateTemp(m.dir, partialPrefix+id+"-*")
	if err != nil {
		return File{}, fmt.Errorf("create upload file: %w", err)
	}
	partialPath := partial.Name()
	discard := func() { _ = os.Remove(partialPath) }

	written, err := io.Copy(partial, io.LimitReader(r, m.maxBytes+1))
	closeErr := partial.Close()
	switch {
	case err != nil:
		discard()
		return File{}, fmt.Errorf("write upload: %w", err)
	case closeErr != nil:
		discard()
		return File{}, fmt.Errorf("close upload: %w", closeErr)
	case written > m.maxBytes:
		discard()
		return File{}, m.CheckSize(written)
	case written == 0:
		discard()
		metrics.UploadsRejectedTotal.WithLabelValues("empty").Inc()
		return File{}, services.Wrap(services.ErrValidation, "uploads", "save", "uploaded file is empty", nil)
	}

	finalPath := filepath.Join(m.dir, id+ext)
	if err := os.Rename(partialPath, finalPath); err != nil {
		discard()
		return File{}, fmt.Errorf("store upload: %w", err)
	}
	metrics.UploadsStoredTotal.Inc()
	file := File{
		ID:           id,
		Path:         finalPath,
		OriginalName: filepath.Base(originalName),
		Size:         written,
		CreatedAt:    time.Now(),
	}
	m.logger.Info("upload stored",
		logging.String("file_id", id),
		logging.String("original_name", file.OriginalName),
		logging.Int64("bytes", written),
	)
	return file, nil
}

// Resolve returns the stored path for id. Malformed ids are not found without
// touching the filesystem.
func (m *Manager) Resolve(id string) (string, error) {
	if !ValidID(id) {
		return "", notFound()
	}
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", notFound()
		}
		return "", fmt.Errorf("scan upload dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && (name == id || strings.HasPrefix(name, id+".")) {
			return filepath.Join(m.dir, name), nil
		}
	}
	return "", notFound()
}

// Delete removes the upload for id. It reports whether a file was removed; a
// file that vanished concurrently is not an error.
func (m *Manager) Delete(id string) (bool, error) {
	path, err := m.Resolve(id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("delete upload: %w", err)
	}
	m.logger.Info("upload deleted", logging.String("file_id", id))
	return true, nil
}

// Sweep removes uploads older than the retention window and returns how many
// were deleted.
func (m *Manager) Sweep(ctx context.Context) int {
	result := staging.CleanStale(ctx, m.dir, m.retention, staging.Filter{Files: true}, m.logger)
	removed := len(result.Removed)
	if removed > 0 {
		metrics.UploadsReapedTotal.Add(float64(removed))
		m.logger.Info("expired uploads removed",
			logging.Int("removed", removed),
			logging.Duration("retention", m.retention),
		)
	}
	if len(result.Errors) > 0 {
		logging.WarnWithContext(m.logger, "upload sweep incomplete", "upload_sweep_failed",
			logging.Int("errors", len(result.Errors)),
			logging.Error(result.Errors[0].Error),
			logging.String(logging.FieldErrorHint, "check upload dir permissions"),
			logging.String(logging.FieldImpact, "expired uploads remain on disk"),
		)
	}
	return removed
}

// Start runs one sweep synchronously, then schedules the reaper. Calling
// Start again while running is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler != nil {
		return nil
	}
	m.Sweep(ctx)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every "+m.sweepInterval.String(), func() { m.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule upload reaper: %w", err)
	}
	scheduler.Start()
	m.scheduler = scheduler
	m.logger.Debug("upload reaper started", logging.Duration("interval", m.sweepInterval))
	return nil
}

// Close stops the reaper and waits for a running sweep to finish. It is
// idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	scheduler := m.scheduler
	m.scheduler = nil
	m.mu.Unlock()
	if scheduler == nil {
		return
	}
	<-scheduler.Stop().Done()
}

// Usage reports the stored upload count and bytes.
func (m *Manager) Usage() (staging.Usage, error) {
	return staging.MeasureUsage(m.dir, staging.Filter{Files: true})
}

func newID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func extensionOf(name string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
}

func notFound() error {
	return services.Wrap(services.ErrNotFound, "uploads", "resolve",
		"file not found; it may have been deleted or expired", nil)
}
