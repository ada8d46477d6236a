package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tukey-analytics/tukey/internal/apperrors"
	"github.com/tukey-analytics/tukey/internal/client"
	"github.com/tukey-analytics/tukey/internal/logger"
)

type ErrorResponse struct {
	ErrorCode apperrors.ErrorCode `json:"error_code"`
	Message   string              `json:"message"`
	RequestID string              `json:"request_id,omitempty"`
}

func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, errorCode apperrors.ErrorCode, message string) {
	reqLogger := logger.ContextMiddlewareLogger(r.Context())

	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	reqLogger.LogAttrs(r.Context(), level, "request failed",
		slog.Int("status", statusCode),
		slog.String("error_code", string(errorCode)),
		slog.String("error_message", message),
	)

	RespondWithJSON(w, statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error_code":"internal_error","message":"Internal Server Error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// respondWithUpstreamError relays a failed API call. Client errors from the API keep their status,
// server errors become 502 and transport failures 503. The message is the translated user message.
func respondWithUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	kind := client.ErrorKind(err)
	status := client.StatusCode(err)

	switch {
	case kind == apperrors.KindNetwork:
		status = http.StatusServiceUnavailable
	case status >= 500:
		status = http.StatusBadGateway
	case status >= 400:
	default:
		status = http.StatusInternalServerError
	}

	RespondWithError(w, r, status, apperrors.GatewayCode(kind), client.ErrorMessage(err))
}
