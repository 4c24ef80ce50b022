package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is reported by both health endpoints.
const ServiceName = "StorefrontService"

// Pinger is a dependency whose reachability decides health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter drives the gRPC health service and the HTTP health check
// from storage pings.
type HealthReporter struct {
	server  *health.Server
	storage Pinger
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealthReporter(storage Pinger, logger *slog.Logger) *HealthReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthReporter{
		server:  health.NewServer(),
		storage: storage,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Check pings storage and publishes the result to the gRPC health service.
func (h *HealthReporter) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	status := grpc_health_v1.HealthCheckResponse_SERVING
	err := h.storage.Ping(ctx)
	if err != nil {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		h.logger.Warn("health check storage ping failed", "error", err)
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return err
}

// Run re-checks health every interval until ctx is done.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	_ = h.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = h.Check(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING.
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}

// ServeHTTP answers the HTTP health check. It always returns 200; the body
// carries the storage status.
func (h *HealthReporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	storageStatus := "healthy"
	if err := h.Check(r.Context()); err != nil {
		storageStatus = "unhealthy"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"serviceName": ServiceName,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"storage":     storageStatus,
	}, h.logger)
}

// NewGRPCServer creates the gRPC server with the health and reflection
// services registered.
func NewGRPCServer(reporter *HealthReporter, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)

	grpc_health_v1.RegisterHealthServer(s, reporter.server)
	logger.Info("gRPC health check service registered")

	reflection.Register(s)
	logger.Info("gRPC reflection service registered")
	return s
}
