package handlers

import (
	"context"
	"net/http"
	"time"
)

const serviceName = "Voltran AI Image Editor API"

// Root describes the service and the model profiles it accepts.
func (a *App) Root(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"message": serviceName,
		"status":  "running",
		"models":  a.Models.Names(),
	})
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.Jobs.Ping(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("health: job store unreachable")
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "healthy"})
}
