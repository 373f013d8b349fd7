package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/studiobook/libs/runtime"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Monitor mirrors the readiness checks into the standard gRPC health service, both for
// the overall server ("") and for the named service.
type Monitor struct {
	srv     *health.Server
	service string
	checks  []runtime.ReadyCheck
	every   time.Duration
	logger  *slog.Logger
	last    healthpb.HealthCheckResponse_ServingStatus
}

func NewMonitor(srv *health.Server, service string, every time.Duration, logger *slog.Logger, checks ...runtime.ReadyCheck) *Monitor {
	if every <= 0 {
		every = 10 * time.Second
	}
	return &Monitor{
		srv:     srv,
		service: service,
		checks:  checks,
		every:   every,
		logger:  logger,
		last:    healthpb.HealthCheckResponse_UNKNOWN,
	}
}

func (m *Monitor) Run(ctx context.Context) {
	m.probe(ctx)
	ticker := time.NewTicker(m.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.srv.Shutdown()
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	err := runtime.CheckAll(ctx, m.checks...)
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.srv.SetServingStatus("", status)
	m.srv.SetServingStatus(m.service, status)
	if status != m.last {
		m.logger.Info("grpc health status changed", "status", status.String(), "err", err)
		m.last = status
	}
}
