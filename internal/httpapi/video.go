package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"vidfetch/internal/extractor"
	"vidfetch/internal/logging"
	"vidfetch/internal/transform"
)

type infoResponse struct {
	Info         extractor.Info     `json:"info"`
	Formats      []extractor.Format `json:"formats"`
	AudioFormats []extractor.Format `json:"audioFormats"`
}

// referenceFrom reads the platform and reference from the query. "videoId"
// and "url" are accepted in place of "ref".
func referenceFrom(q url.Values) (extractor.Reference, error) {
	platform := q.Get("platform")
	if platform == "" {
		platform = string(extractor.PlatformYouTube)
	}
	value := q.Get("ref")
	for _, alias := range []string{"videoId", "url"} {
		if value == "" {
			value = q.Get(alias)
		}
	}
	return extractor.ParseReference(platform, value)
}

// VideoInfo serves GET /api/video/info.
func (h *Handler) VideoInfo(w http.ResponseWriter, r *http.Request) {
	ref, err := referenceFrom(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	info, err := h.info.FetchInfo(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := infoResponse{
		Info:         *info,
		Formats:      extractor.VideoFormats(info.Formats),
		AudioFormats: extractor.AudioFormats(info.Formats),
	}
	resp.Info.Formats = nil
	writeJSON(w, h.log(r), http.StatusOK, resp)
}

// downloadRequest parses the download query.
func downloadRequest(q url.Values) (transform.Request, error) {
	ref, err := referenceFrom(q)
	if err != nil {
		return transform.Request{}, err
	}
	req := transform.Request{
		Reference: ref,
		FormatID:  strings.TrimSpace(firstOf(q, "itag", "formatId")),
		Quality:   strings.TrimSpace(q.Get("quality")),
		Encoding:  transform.ParseEncoding(q.Get("encode")),
	}
	startRaw, endRaw := q.Get("startTime"), q.Get("endTime")
	if startRaw != "" || endRaw != "" {
		if startRaw == "" || endRaw == "" {
			return transform.Request{}, badRequest("startTime and endTime must be given together")
		}
		start, err := strconv.ParseFloat(startRaw, 64)
		if err != nil {
			return transform.Request{}, badRequest(fmt.Sprintf("invalid startTime %q", startRaw))
		}
		end, err := strconv.ParseFloat(endRaw, 64)
		if err != nil {
			return transform.Request{}, badRequest(fmt.Sprintf("invalid endTime %q", endRaw))
		}
		req.Clip = &transform.ClipRange{Start: start, End: end}
	}
	return req, nil
}

// VideoDownload serves GET /api/video/download. The response body is the
// transform stream; a client disconnect cancels the job.
func (h *Handler) VideoDownload(w http.ResponseWriter, r *http.Request) {
	req, err := downloadRequest(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stream, err := h.pipeline.Open(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer stream.Close()

	header := w.Header()
	header.Set("Content-Type", stream.ContentType())
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stream.Filename()))
	header.Set("Cache-Control", "no-cache")
	if size := stream.Size(); size >= 0 {
		header.Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, stream)
	if err != nil && !errors.Is(err, io.EOF) {
		h.log(r).Info("download ended early",
			logging.String(logging.FieldJobID, stream.Job().ID()),
			logging.Int64("bytes", written),
			logging.Error(err),
		)
	}
}

func firstOf(q url.Values, keys ...string) string {
	for _, key := range keys {
		if v := q.Get(key); v != "" {
			return v
		}
	}
	return ""
}
