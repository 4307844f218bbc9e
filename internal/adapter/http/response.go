package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jeju-platform/edge-engine/internal/domain"
)

type envelope struct {
	Data    any    `json:"data,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

// writeJSONWarn 同 writeJSON，带降级警告（头 + 响应体各放一份）。
func writeJSONWarn(w http.ResponseWriter, status int, data any, warning string) {
	w.Header().Set("Content-Type", "application/json")
	if warning != "" {
		w.Header().Set("X-Persistence-Warning", warning)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data, Warning: warning})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
		msg = err.Error()
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
		msg = err.Error()
	case errors.Is(err, domain.ErrUpstreamTimeout):
		status = http.StatusGatewayTimeout
		msg = err.Error()
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
		msg = err.Error()
	default:
		slog.Error("internal error", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: msg})
}
