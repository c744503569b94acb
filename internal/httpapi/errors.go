package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"vidfetch/internal/extractor"
	"vidfetch/internal/logging"
	"vidfetch/internal/services"
)

// StatusClientClosedRequest is the non-standard status for a caller that went
// away before the response was ready.
const StatusClientClosedRequest = 499

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// statusFor maps an error onto an HTTP status and the message shown to the
// client.
func statusFor(err error) (int, string) {
	switch extractor.Classify(err) {
	case extractor.FailureUnavailable, extractor.FailurePrivate:
		return http.StatusNotFound, extractor.Classify(err).Message()
	case extractor.FailureAgeRestricted:
		return http.StatusForbidden, extractor.Classify(err).Message()
	}
	switch services.KindOf(err) {
	case services.KindValidation:
		return http.StatusBadRequest, err.Error()
	case services.KindNotFound:
		return http.StatusNotFound, err.Error()
	case services.KindParse:
		return http.StatusUnprocessableEntity, err.Error()
	case services.KindUnsupported:
		return http.StatusNotImplemented, err.Error()
	case services.KindSpawn, services.KindProcessExit:
		return http.StatusBadGateway, err.Error()
	case services.KindCancelled:
		return StatusClientClosedRequest, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Debug("failed to encode JSON response", logging.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	logger := h.log(r)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logger, "request failed", "http_request_failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the error kind and stderr tail"),
			logging.String(logging.FieldImpact, "client received an error response"),
		)
	} else {
		logger.Debug("request rejected",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	resp := errorResponse{Error: message, Kind: string(services.KindOf(err))}
	if id, ok := services.RequestIDFromContext(r.Context()); ok {
		resp.RequestID = id
	}
	writeJSON(w, logger, status, resp)
}

func badRequest(message string) error {
	return services.Wrap(services.ErrValidation, "", "", message, nil)
}
