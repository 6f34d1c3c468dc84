package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/inkwell/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// StatusClientClosedRequest is reported when the caller went away before
// the answer was ready. Nothing is written to a live client with it.
const StatusClientClosedRequest = 499

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "request cancelled"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrUnavailable):
		return http.StatusServiceUnavailable, "content service unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "content service timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError writes err as JSON and logs anything that is not a plain miss
// or an abandoned request.
func writeError(w http.ResponseWriter, op string, err error, attrs ...any) {
	status, msg := statusFor(err)
	switch status {
	case http.StatusNotFound:
	case StatusClientClosedRequest:
		slog.Debug(op+" abandoned", append(attrs, slog.String("error", err.Error()))...)
	default:
		slog.Error(op+" failed", append(attrs, slog.String("error", err.Error()))...)
	}
	writeJSON(w, status, errorBody(msg))
}
