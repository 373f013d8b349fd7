package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/studiobook/libs/grpcx"
	"github.com/md-rashed-zaman/studiobook/libs/runtime"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/health"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// startGrpcServer serves grpc.health.v1 on port, driven by the same checks as /readyz.
func startGrpcServer(ctx context.Context, logger *slog.Logger, service, port string, checks []runtime.ReadyCheck) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, err
	}

	srv := grpcx.NewServer(logger)
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	go health.NewMonitor(hs, service, 10*time.Second, logger, checks...).Run(ctx)
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	return srv, nil
}
