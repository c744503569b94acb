package httpapi

import (
	"net/http"
	"runtime"
	"time"

	"vidfetch/internal/logging"
	"vidfetch/internal/metacache"
	"vidfetch/internal/staging"
)

const mib = 1024 * 1024

type memoryStats struct {
	HeapUsedMB  uint64 `json:"heapUsed"`
	HeapTotalMB uint64 `json:"heapTotal"`
	SysMB       uint64 `json:"sys"`
	Goroutines  int    `json:"goroutines"`
}

type statsResponse struct {
	Cache      metacache.Stats `json:"cache"`
	Uptime     float64         `json:"uptime"`
	Memory     memoryStats     `json:"memory"`
	ActiveJobs int             `json:"activeJobs"`
	TempFiles  staging.Usage   `json:"tempFiles"`
	Uploads    staging.Usage   `json:"uploads"`
}

// Stats serves GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := statsResponse{
		Cache:  h.info.CacheStats(),
		Uptime: time.Since(h.started).Seconds(),
		Memory: memoryStats{
			HeapUsedMB:  mem.HeapAlloc / mib,
			HeapTotalMB: mem.HeapSys / mib,
			SysMB:       mem.Sys / mib,
			Goroutines:  runtime.NumGoroutine(),
		},
	}
	logger := h.log(r)
	if h.pipeline != nil {
		resp.ActiveJobs = h.pipeline.Active()
		if usage, err := h.pipeline.Usage(); err == nil {
			resp.TempFiles = usage
		} else {
			logger.Debug("temp usage unavailable", logging.Error(err))
		}
	}
	if h.uploads != nil {
		if usage, err := h.uploads.Usage(); err == nil {
			resp.Uploads = usage
		} else {
			logger.Debug("upload usage unavailable", logging.Error(err))
		}
	}
	writeJSON(w, logger, http.StatusOK, resp)
}

// Health serves GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log(r), http.StatusOK, map[string]string{"status": "ok"})
}
