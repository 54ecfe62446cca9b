package httpapi

import (
	"net/http"

	"internflow-engine/internal/domain"
	"internflow-engine/internal/store"
)

type JobsHandler struct {
	Store *store.Store
}

// List returns job posts not yet applied to, newest first.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	jobs, err := h.Store.UnappliedJobPosts(r.Context(), limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, jobs)
}

func (h JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.NewJobPost
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	id, added, err := h.Store.AddJobPost(r.Context(), in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	WriteJSON(w, status, map[string]any{"id": id, "added": added})
}

func (h JobsHandler) MarkApplied(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid id")
		return
	}
	if err := h.Store.MarkJobApplied(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}
