package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.logger.ErrorContext(ctx, "failed to encode response", slog.Int("status", status), slog.Any("error", err))
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, reason, message string) {
	r.writeJSON(ctx, w, status, errorResponse{
		Status: "error",
		Error:  message,
		Reason: reason,
	})
}
