package match

import (
	"github.com/go-chi/chi/v5"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/server"
)

// Registrar ties the match service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the match service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// RegisterRoutes attaches the match endpoints
func (reg *Registrar) RegisterRoutes(r chi.Router, mw *server.Middleware) {
	h := &handler{svc: NewMatchService(reg.appCtx)}

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate, mw.RejectBanned)
		r.Get("/matches", h.list)
		r.Get("/matches/{id}", h.get)
		r.Get("/matches/{id}/contact", h.contact)
		r.Delete("/matches/{id}", h.unmatch)
	})
}
