package httpapi

import (
	"net/http"

	"internflow-engine/internal/lifecycle"
)

type ReportHandler struct {
	Engine *lifecycle.Engine
}

func (h ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Engine.Statistics(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	out, err := h.Engine.Report(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h ReportHandler) FollowUps(w http.ResponseWriter, r *http.Request) {
	out, err := h.Engine.FollowUpQueue(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h ReportHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 30)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	out, err := h.Engine.ApplicationTimeline(r.Context(), days)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h ReportHandler) ResponseTimes(w http.ResponseWriter, r *http.Request) {
	out, err := h.Engine.ResponseTimeStats(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, out)
}
