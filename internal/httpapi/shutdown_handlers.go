package httpapi

import (
	"crypto/subtle"
	"net/http"
)

// ShutdownHandler lets the local process that launched the engine stop it.
type ShutdownHandler struct {
	Token    string
	Shutdown func()
}

func (h ShutdownHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if !isLoopback(r) {
		WriteError(w, r, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	got := r.Header.Get("X-Shutdown-Token")
	if got == "" || h.Token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.Token)) != 1 {
		WriteError(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	// Respond immediately, then shutdown asynchronously
	writeJSON(w, map[string]any{"ok": true})
	go h.Shutdown()
}
