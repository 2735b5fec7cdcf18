package user

import (
	"github.com/go-chi/chi/v5"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/server"
)

// Registrar ties the user service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the user service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// RegisterRoutes attaches the user endpoints
func (reg *Registrar) RegisterRoutes(r chi.Router, mw *server.Middleware) {
	h := &handler{svc: NewUserService(reg.appCtx), mw: mw}

	r.Post("/users/register", h.register)
	r.With(mw.Authenticate).Get("/users/me", h.me)
}
