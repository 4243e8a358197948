package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/guille1999utp/bemaster-part-2/internal/logging"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler responds with service health information. Check, when set,
// probes the database.
type HealthHandler struct {
	Check func(ctx context.Context) error
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Check != nil {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		if err := h.Check(checkCtx); err != nil {
			logging.FromContext(ctx).Error().Err(err).Msg("health check failed")
			respondJSON(ctx, w, http.StatusServiceUnavailable, envelope{"ok": false, "status": "unavailable"})
			return
		}
	}

	respondOK(ctx, w, envelope{"status": "ok"})
}
