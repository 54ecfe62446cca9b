package httpapi

import (
	"net/http"
	"path/filepath"
	"sync/atomic"

	"internflow-engine/internal/config"
	"internflow-engine/internal/events"
)

type ConfigHandler struct {
	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
	// Apply pushes a saved config into the running components.
	Apply func(config.Config)
	Hub   *events.Hub
}

func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cur := h.CfgVal.Load().(config.Config)
	writeJSON(w, cur.Redacted())
}

// Put validates and saves a full config, then applies it to the running
// engine. Invalid configs are answered with the validation result and never
// written. restartRequired is set when the app, database or logging
// sections changed, since those are read only at startup.
func (h ConfigHandler) Put(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := decodeJSON(w, r, &incoming); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	prev := h.CfgVal.Load().(config.Config)
	onDisk, err := config.Load(h.UserCfgPath)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	incoming = config.ForSave(incoming, prev, onDisk)

	_, vr, err := config.SaveAtomic(h.UserCfgPath, incoming)
	if !vr.OK() {
		// Return structured errors so the UI can show them nicely
		WriteJSON(w, http.StatusBadRequest, vr)
		return
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}

	saved, err := h.LoadCfg()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "reload_failed", "saved but reload failed: "+err.Error())
		return
	}
	h.CfgVal.Store(saved)
	if h.Apply != nil {
		h.Apply(saved)
	}
	restart := config.RestartRequired(prev, saved)
	if h.Hub != nil {
		h.Hub.Emit(r.Context(), events.TypeConfigUpdated, map[string]any{
			"warnings":        vr.Warnings,
			"restartRequired": restart,
		})
	}
	writeJSON(w, map[string]any{
		"config":          saved.Redacted(),
		"warnings":        vr.Warnings,
		"restartRequired": restart,
	})
}

func (h ConfigHandler) Path(w http.ResponseWriter, r *http.Request) {
	abs, _ := filepath.Abs(h.UserCfgPath)
	writeJSON(w, map[string]any{"path": abs})
}

func (h ConfigHandler) Validate(w http.ResponseWriter, r *http.Request) {
	cur := h.CfgVal.Load().(config.Config)
	_, vr := config.NormalizeAndValidate(cur)
	writeJSON(w, vr)
}
