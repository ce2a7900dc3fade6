package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// StatusSetter is satisfied by *health.Server.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// HealthHandler mirrors database reachability into the gRPC health service.
type HealthHandler struct {
	service  string
	ping     func(ctx context.Context) error
	status   StatusSetter
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewHealthHandler(service string, ping func(ctx context.Context) error, status StatusSetter, interval time.Duration, logger *zap.Logger) *HealthHandler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthHandler{
		service:  service,
		ping:     ping,
		status:   status,
		interval: interval,
		timeout:  2 * time.Second,
		logger:   logger,
	}
}

// Check pings once and publishes the result for both the named service and
// the server as a whole.
func (h *HealthHandler) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.ping(ctx); err != nil {
		h.logger.Warn("Database health check failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	h.status.SetServingStatus("", status)
	h.status.SetServingStatus(h.service, status)
	return status
}

// Run checks on every interval until ctx is done.
func (h *HealthHandler) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
