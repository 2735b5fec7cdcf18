package action

import (
	"github.com/go-chi/chi/v5"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/server"
)

// Registrar ties the action service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the action service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// RegisterRoutes attaches swipe and incoming-like endpoints
func (reg *Registrar) RegisterRoutes(r chi.Router, mw *server.Middleware) {
	h := &handler{svc: NewActionService(reg.appCtx)}

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate, mw.RejectBanned)
		r.Post("/actions", h.send)
		r.Get("/matches/incoming", h.listIncoming)
		r.Get("/matches/incoming/next", h.nextIncoming)
		r.Post("/matches/incoming/{user_id}/decide", h.decide)
	})
}
