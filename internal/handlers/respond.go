package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/guille1999utp/bemaster-part-2/internal/logging"
)

// envelope is the body of every JSON response. respondOK adds "ok": true.
type envelope map[string]any

func respondOK(ctx context.Context, w http.ResponseWriter, body envelope) {
	if body == nil {
		body = envelope{}
	}
	body["ok"] = true
	respondJSON(ctx, w, http.StatusOK, body)
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	respondJSON(ctx, w, status, envelope{"ok": false, "msg": msg})
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	logger := logging.FromContext(ctx)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Int("status", status).Msg("encode response body")
		return
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error().Int("status", status).Interface("response", payload).Msg("request failed")
	case status >= http.StatusBadRequest:
		logger.Warn().Int("status", status).Interface("response", payload).Msg("request returned client error")
	}
}
