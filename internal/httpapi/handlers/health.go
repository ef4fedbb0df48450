package handlers

import (
	"context"
	"net/http"
	"time"

	"captionstudio/internal/httpkit"
)

const healthCheckTimeout = 5 * time.Second

// Health performs a health check of the service.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	health := map[string]any{
		"status":  "ok",
		"service": "captionstudio-api",
		"version": "0.1.0",
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for _, check := range checks {
			if check["status"] != "ok" {
				health["status"] = "degraded"
				log.Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

// deepHealthCheck pings every backing service the api depends on.
func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	checks := make(map[string]map[string]any)

	if h.sessions != nil {
		checks["postgres"] = ping(ctx, h.sessions.Ping)
	}
	if h.queue != nil {
		checks["redis"] = ping(ctx, h.queue.Ping)
	}
	if h.sp != nil {
		result := ping(ctx, h.sp.Ping)
		result["provider"] = h.sp.Provider()
		checks["storage"] = result
	}

	return checks
}

func ping(ctx context.Context, fn func(context.Context) error) map[string]any {
	start := time.Now()
	result := map[string]any{
		"status": "ok",
	}

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := fn(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}
