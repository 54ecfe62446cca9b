package httpapi

import (
	"context"
	"net/http"

	"internflow-engine/internal/poll"
)

// JobHandler exposes one background job: its status, and a way to run it
// now.
type JobHandler struct {
	Tracker *poll.Tracker
	// Async starts the run and answers 202 without waiting for it.
	Async bool
}

func (h JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Tracker.Status())
}

func (h JobHandler) Run(w http.ResponseWriter, r *http.Request) {
	// The run outlives the request when async; keep the request ID.
	ctx := context.WithoutCancel(r.Context())

	if h.Async {
		if err := h.Tracker.Go(ctx); err != nil {
			writeErr(w, r, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
		return
	}

	res, err := h.Tracker.RunNow(ctx)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, res)
}
