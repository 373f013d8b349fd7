// Command grpc-healthcheck probes a grpc.health.v1 endpoint and exits non-zero unless it
// reports SERVING. It is meant for container health checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/md-rashed-zaman/studiobook/libs/config"
	"github.com/md-rashed-zaman/studiobook/libs/grpcx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	var (
		addr    = flag.String("addr", config.String("GRPC_ADDR", "localhost:9090"), "host:port of the gRPC server")
		service = flag.String("service", config.String("GRPC_HEALTH_SERVICE", ""), "service name to check; empty checks the whole server")
		timeout = flag.Duration("timeout", 3*time.Second, "overall deadline")
	)
	flag.Parse()

	conn, err := grpcx.Dial(*addr, grpcx.DialOptions{})
	if err != nil {
		fatal(err.Error())
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = grpcx.WithRequestID(ctx, fmt.Sprintf("healthcheck-%d", time.Now().UnixNano()))

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: *service})
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("status=%s\n", resp.GetStatus())
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		os.Exit(1)
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
