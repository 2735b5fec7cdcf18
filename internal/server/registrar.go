package server

import (
	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc"
)

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// RouteRegistrar mounts a service's HTTP routes. Each service picks the
// middleware its routes need.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router, mw *Middleware)
}
