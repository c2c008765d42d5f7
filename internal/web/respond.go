package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/logging"
)

type errorResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	GenerationID string `json:"generation_id,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

// decodeJSON reads a JSON body of at most limit bytes into v. Any failure is
// reported as domain.ErrInvalidRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return domain.Invalid("request body exceeds %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return domain.Invalid("request body is empty")
		default:
			return domain.Invalid("malformed JSON: %v", err)
		}
	}
	return nil
}

// errorStatus maps err to an HTTP status and the message safe to show the
// client. Pipeline failures get a generic message; their details stay in the
// logs.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrRenderTimeout):
		return http.StatusInternalServerError, "image generation timed out"
	case errors.Is(err, domain.ErrRenderFailure):
		return http.StatusInternalServerError, "image generation failed"
	case errors.Is(err, domain.ErrStorageFailure):
		return http.StatusInternalServerError, "failed to store file"
	case errors.Is(err, domain.ErrDecodeFailure):
		return http.StatusInternalServerError, "failed to read image"
	case errors.Is(err, domain.ErrModelUnavailable):
		return http.StatusInternalServerError, "detection model unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError logs err and writes the mapped error body. Server errors carry
// the request id so clients can quote it.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	resp := errorResponse{Error: msg}

	var genErr *domain.GenerationError
	if errors.As(err, &genErr) {
		resp.GenerationID = genErr.GenerationID
	}

	logger := logging.FromContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		resp.RequestID = logging.RequestID(r.Context())
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		logger.Info("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, s.logger, status, resp)
}
