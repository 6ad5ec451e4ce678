package monitoring

import (
	"context"
	"time"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type grpcCheck struct {
	address string
	service string
	timeout time.Duration
	logger  logging.Logger
}

// NewGRPCCheck calls grpc.health.v1.Health/Check on address. Only SERVING
// is healthy. An empty service asks for the overall server status.
func NewGRPCCheck(address, service string, timeout time.Duration, logger logging.Logger) HealthCheck {
	return &grpcCheck{
		address: address,
		service: service,
		timeout: timeout,
		logger:  logger,
	}
}

func (g *grpcCheck) Name() string {
	return "grpc"
}

func (g *grpcCheck) Type() HealthCheckType {
	return HealthCheckTypeGRPC
}

func (g *grpcCheck) Check(ctx context.Context) Result {
	g.logger.Debugf("Performing gRPC health check, address: %s, service: %q, timeout: %v", g.address, g.service, g.timeout)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// a fresh connection per poll; the restarted program gets a new listener
	conn, err := grpc.DialContext(ctx, g.address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return requestFailed(g.logger, g.address, err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: g.service})
	if err != nil {
		return requestFailed(g.logger, g.address, err)
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return Unhealthy(CodeGRPCStatus, "gRPC status %s from %s", resp.GetStatus(), g.address)
	}
	return Healthy("gRPC status %s from %s", resp.GetStatus(), g.address)
}
