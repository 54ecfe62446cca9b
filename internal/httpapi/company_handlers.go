package httpapi

import (
	"net/http"

	"internflow-engine/internal/domain"
	"internflow-engine/internal/store"
)

type CompaniesHandler struct {
	Store *store.Store
}

func (h CompaniesHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, out)
}

func (h CompaniesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.NewCompany
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	id, err := h.Store.AddCompany(r.Context(), in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	c, err := h.Store.GetCompany(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}
