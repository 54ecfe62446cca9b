package httpapi

import (
	"net/http"

	"internflow-engine/internal/domain"
	"internflow-engine/internal/events"
	"internflow-engine/internal/lifecycle"
	"internflow-engine/internal/store"
)

type ApplicationsHandler struct {
	Store  *store.Store
	Engine *lifecycle.Engine
	Hub    *events.Hub
}

func (h ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	out, err := h.Store.ListApplications(r.Context(), limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h ApplicationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.NewApplication
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	id, err := h.Store.LogApplication(r.Context(), in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	a, err := h.Store.GetApplication(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, a)
}

// FollowUp records a follow-up the user sent. 422 when the application is
// not due, already answered, or at the cap.
func (h ApplicationsHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid id")
		return
	}
	a, err := h.Engine.RecordFollowUpSent(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.Hub.Emit(r.Context(), events.TypeFollowUpRecorded, a)
	writeJSON(w, a)
}

type recordResponseReq struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h ApplicationsHandler) Response(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid id")
		return
	}
	var req recordResponseReq
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	out, err := h.Engine.RecordResponse(r.Context(), id, req.Subject, req.Body)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.Hub.Emit(r.Context(), events.TypeResponseRecorded, map[string]any{
		"applicationId": id,
		"responseId":    out.ResponseID,
		"transitioned":  out.Transitioned,
	})
	writeJSON(w, out)
}
