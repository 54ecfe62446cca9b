package httpapi

import (
	"context"
	"net/http"
	"time"

	"internflow-engine/internal/store"

	"github.com/jonboulle/clockwork"
)

type HealthHandler struct {
	DB    *store.DB
	Clock clockwork.Clock
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{
		"ok":     true,
		"time":   h.Clock.Now().UTC().Format(time.RFC3339),
		"driver": h.DB.Driver(),
	}
	if err := h.DB.Ping(ctx); err != nil {
		body["ok"] = false
		body["error"] = err.Error()
		WriteJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, body)
}
