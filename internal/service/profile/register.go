package profile

import (
	"github.com/go-chi/chi/v5"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/server"
)

// Registrar ties the profile service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the profile service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// RegisterRoutes attaches the profile endpoints.
// Banned users may still read their own profile.
func (reg *Registrar) RegisterRoutes(r chi.Router, mw *server.Middleware) {
	h := &handler{svc: NewProfileService(reg.appCtx)}

	r.With(mw.Authenticate).Get("/profile", h.get)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate, mw.RejectBanned)
		r.Post("/profile", h.create)
		r.Patch("/profile", h.update)
		r.Get("/profile/next", h.next)
	})
}
