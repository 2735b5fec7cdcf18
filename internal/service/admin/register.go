package admin

import (
	"github.com/go-chi/chi/v5"

	"github.com/oggyb/gymbro-match/internal/app"
	"github.com/oggyb/gymbro-match/internal/server"
)

// Registrar ties the admin service into the HTTP router
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the admin service
func NewRegistrar(appCtx *app.AppContext, opts BroadcastOptions) *Registrar {
	return &Registrar{svc: NewAdminService(appCtx, opts)}
}

// RegisterRoutes attaches the admin endpoints behind RequireAdmin
func (reg *Registrar) RegisterRoutes(r chi.Router, mw *server.Middleware) {
	h := &handler{svc: reg.svc}

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate, mw.RequireAdmin)
		r.Get("/admin/export/profiles.csv", h.exportProfiles)
		r.Post("/admin/broadcasts", h.startBroadcast)
		r.Get("/admin/broadcasts/{id}", h.getBroadcast)
		r.Post("/admin/broadcasts/{id}/cancel", h.cancelBroadcast)
		r.Post("/admin/users/{id}/ban", h.ban)
	})
}

// Shutdown stops running broadcasts.
func (reg *Registrar) Shutdown() {
	reg.svc.Broadcasts().Shutdown()
}
