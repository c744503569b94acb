package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vidfetch/internal/captions"
	"vidfetch/internal/extractor"
	"vidfetch/internal/logging"
	"vidfetch/internal/metacache"
	"vidfetch/internal/staging"
	"vidfetch/internal/transform"
	"vidfetch/internal/uploads"
)

// InfoSource fetches video metadata.
type InfoSource interface {
	FetchInfo(ctx context.Context, ref extractor.Reference) (*extractor.Info, error)
	CacheStats() metacache.Stats
}

// StreamOpener runs transform jobs.
type StreamOpener interface {
	Open(ctx context.Context, req transform.Request) (*transform.Stream, error)
	Usage() (staging.Usage, error)
	Active() int
}

// UploadStore keeps uploaded videos.
type UploadStore interface {
	Save(r io.Reader, originalName, contentType string) (uploads.File, error)
	Resolve(id string) (string, error)
	Delete(id string) (bool, error)
	CheckSize(n int64) error
	MaxBytes() int64
	Usage() (staging.Usage, error)
}

// CaptionSource extracts captions from a local media file.
type CaptionSource interface {
	Extract(ctx context.Context, path string) (captions.Result, error)
}

// Options wires a Handler to its collaborators.
type Options struct {
	Info     InfoSource
	Pipeline StreamOpener
	Uploads  UploadStore
	Captions CaptionSource
	Logger   *slog.Logger
	// Started is reported as the process start for uptime; zero means now.
	Started time.Time
}

// Handler serves the HTTP routes.
type Handler struct {
	info     InfoSource
	pipeline StreamOpener
	uploads  UploadStore
	captions CaptionSource
	logger   *slog.Logger
	started  time.Time
}

// NewHandler constructs a Handler.
func NewHandler(opts Options) *Handler {
	started := opts.Started
	if started.IsZero() {
		started = time.Now()
	}
	return &Handler{
		info:     opts.Info,
		pipeline: opts.Pipeline,
		uploads:  opts.Uploads,
		captions: opts.Captions,
		logger:   logging.NewComponentLogger(opts.Logger, "http"),
		started:  started,
	}
}

// Router builds the route table with middleware applied.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, h.instrument)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/video/info", h.VideoInfo).Methods(http.MethodGet)
	api.HandleFunc("/video/download", h.VideoDownload).Methods(http.MethodGet)
	api.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	api.HandleFunc("/upload/transcribe", h.Transcribe).Methods(http.MethodPost)
	api.HandleFunc("/upload/{fileId}/captions", h.UploadCaptions).Methods(http.MethodGet)
	api.HandleFunc("/upload/{fileId}", h.DeleteUpload).Methods(http.MethodDelete)
	api.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
	return r
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	return logging.WithContext(r.Context(), h.logger)
}
