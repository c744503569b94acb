package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"vidfetch/internal/captions"
	"vidfetch/internal/services"
)

// multipartOverhead allows for form boundaries and headers on top of the file.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	FileID       string `json:"fileId"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Message      string `json:"message"`
}

type transcribeRequest struct {
	FileID string `json:"fileId"`
}

type transcribeResponse struct {
	Entries    []captions.Entry `json:"entries"`
	Method     captions.Method  `json:"method"`
	Language   string           `json:"language"`
	EntryCount int              `json:"entryCount"`
}

// Upload serves POST /api/upload. The "file" part is streamed to disk without
// buffering the whole body.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.uploads.MaxBytes()
	if r.ContentLength > limit+multipartOverhead {
		h.writeError(w, r, h.uploads.CheckSize(r.ContentLength-multipartOverhead))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	reader, err := r.MultipartReader()
	if err != nil {
		h.writeError(w, r, badRequest("expected a multipart/form-data upload"))
		return
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.writeError(w, r, h.bodyError(err))
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		file, err := h.uploads.Save(part, part.FileName(), part.Header.Get("Content-Type"))
		_ = part.Close()
		if err != nil {
			h.writeError(w, r, h.bodyError(err))
			return
		}
		writeJSON(w, h.log(r), http.StatusOK, uploadResponse{
			FileID:       file.ID,
			OriginalName: file.OriginalName,
			Size:         file.Size,
			Message:      "file uploaded; use the fileId to extract captions",
		})
		return
	}
	h.writeError(w, r, badRequest("no file provided; upload a video in the \"file\" field"))
}

// bodyError turns a body size overrun into the upload size error.
func (h *Handler) bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return h.uploads.CheckSize(h.uploads.MaxBytes() + 1)
	}
	return err
}

// Transcribe serves POST /api/upload/transcribe.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var body transcribeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil {
		h.writeError(w, r, badRequest("expected a JSON body with fileId"))
		return
	}
	if strings.TrimSpace(body.FileID) == "" {
		h.writeError(w, r, badRequest("missing fileId; upload a video first"))
		return
	}
	result, err := h.extractCaptions(r, body.FileID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, h.log(r), http.StatusOK, transcribeResponse{
		Entries:    result.Entries,
		Method:     result.Method,
		Language:   result.Language,
		EntryCount: len(result.Entries),
	})
}

// UploadCaptions serves GET /api/upload/{fileId}/captions?format=srt|vtt|txt.
func (h *Handler) UploadCaptions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(captions.FormatNameSRT)
	}
	format, err := captions.ParseFormat(raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.extractCaptions(r, mux.Vars(r)["fileId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	header := w.Header()
	header.Set("Content-Type", captions.ContentType(format)+"; charset=utf-8")
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", captions.Filename(result.Language, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, captions.Render(result.Entries, format))
}

// DeleteUpload serves DELETE /api/upload/{fileId}.
func (h *Handler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	removed, err := h.uploads.Delete(mux.Vars(r)["fileId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, h.log(r), http.StatusOK, map[string]bool{"deleted": removed})
}

func (h *Handler) extractCaptions(r *http.Request, fileID string) (captions.Result, error) {
	path, err := h.uploads.Resolve(fileID)
	if err != nil {
		return captions.Result{}, err
	}
	return h.captions.Extract(services.WithFileID(r.Context(), fileID), path)
}
