package profile

import (
	"net/http"

	"github.com/oggyb/gymbro-match/internal/server"
	"github.com/oggyb/gymbro-match/internal/service/dto"
)

type handler struct {
	svc *Service
}

// get handles GET /profile.
func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), server.CurrentUser(r.Context()).ID)
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusOK, dto.FromProfile(p))
}

// create handles POST /profile.
func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := server.Decode(r, &in); err != nil {
		server.Error(w, r, err)
		return
	}
	p, err := h.svc.Create(r.Context(), server.CurrentUser(r.Context()).ID, in)
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusCreated, dto.FromProfile(p))
}

// update handles PATCH /profile.
func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := server.Decode(r, &in); err != nil {
		server.Error(w, r, err)
		return
	}
	p, err := h.svc.Update(r.Context(), server.CurrentUser(r.Context()).ID, in)
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusOK, dto.FromProfile(p))
}

// next handles GET /profile/next.
func (h *handler) next(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.NextProfile(r.Context(), server.CurrentUser(r.Context()).ID)
	if err != nil {
		server.Error(w, r, err)
		return
	}
	server.JSON(w, r, http.StatusOK, dto.FromProfile(p))
}
