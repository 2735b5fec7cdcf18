package user

import (
	"net/http"

	"github.com/oggyb/gymbro-match/internal/server"
	"github.com/oggyb/gymbro-match/internal/service/dto"
)

type handler struct {
	svc *Service
	mw  *server.Middleware
}

// register handles POST /users/register.
// 201 when the user was created, 200 when it already existed.
func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := server.Decode(r, &in); err != nil {
		server.Error(w, r, err)
		return
	}
	if err := h.mw.VerifySignature(r, in.TelegramID); err != nil {
		server.Error(w, r, err)
		return
	}

	u, created, err := h.svc.Register(r.Context(), in)
	if err != nil {
		server.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	server.JSON(w, r, status, dto.FromUser(u))
}

// me handles GET /users/me.
func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	server.JSON(w, r, http.StatusOK, dto.FromUser(server.CurrentUser(r.Context())))
}
