package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-liquido/internal/common"
	"github.com/noah-isme/backend-liquido/internal/obs"
)

// Handler exposes the live form endpoints.
type Handler struct {
	Svc *Service
}

// Open handles POST /api/v1/forms.
func (h Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	owner, _ := common.Subject(r.Context())
	view, err := h.Svc.Open(r.Context(), owner, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	obs.AddLogField(r.Context(), "form_session", view.ID)
	w.Header().Set("Location", "/api/v1/forms/"+view.ID)
	common.Data(w, http.StatusCreated, view)
}

// Get handles GET /api/v1/forms/{id}.
func (h Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(r)
	owner, _ := common.Subject(r.Context())
	view, err := h.Svc.Get(r.Context(), owner, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

// Input handles POST /api/v1/forms/{id}/input.
func (h Handler) Input(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(r)
	var ev InputEvent
	if err := common.DecodeJSON(r, &ev); err != nil {
		common.WriteError(w, err)
		return
	}
	owner, _ := common.Subject(r.Context())
	view, err := h.Svc.Input(r.Context(), owner, id, ev)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

// Close handles DELETE /api/v1/forms/{id}.
func (h Handler) Close(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(r)
	owner, _ := common.Subject(r.Context())
	if err := h.Svc.Close(r.Context(), owner, id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handler) sessionID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	obs.AddLogField(r.Context(), "form_session", id)
	return id
}

// InputRateKey keys the per-session input rate limit.
func InputRateKey(r *http.Request) string {
	return "form-input:" + chi.URLParam(r, "id")
}
