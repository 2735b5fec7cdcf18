package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/gymbro-match/internal/config"
)

// NewGRPCServer builds a gRPC server and registers all provided services
func NewGRPCServer(registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer()

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer
}

// ServeGRPC listens on the configured address and blocks until srv stops.
func ServeGRPC(cfg *config.Config, srv *grpc.Server) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return srv.Serve(lis)
}

// HealthRegistrar exposes grpc.health.v1.Health. The overall status ("")
// follows the dependency checks, refreshed by Watch.
type HealthRegistrar struct {
	health *health.Server
	checks []Check
	log    *slog.Logger
}

func NewHealthRegistrar(log *slog.Logger, checks ...Check) *HealthRegistrar {
	return &HealthRegistrar{health: health.NewServer(), checks: checks, log: log}
}

func (h *HealthRegistrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.health)
}

// Probe runs every check once and publishes the result.
func (h *HealthRegistrar) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for _, c := range h.checks {
		if err := c.Fn(ctx); err != nil {
			h.log.Warn("health check failed", "check", c.Name, "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus("", status)
	return status
}

// Watch probes every interval until ctx is done, then marks the server as
// shutting down.
func (h *HealthRegistrar) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, interval)
			h.Probe(probeCtx)
			cancel()
		}
	}
}
