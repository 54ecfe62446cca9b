package httpapi

import (
	"net/http"

	"internflow-engine/internal/store"
)

type DBHandler struct {
	DB *store.DB
}

// Checkpoint flushes the SQLite WAL so the database file can be copied.
// Local callers only.
func (h DBHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r) {
		WriteError(w, r, http.StatusForbidden, "forbidden", "forbidden")
		return
	}
	if err := h.DB.Checkpoint(r.Context()); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
