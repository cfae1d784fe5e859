package clients

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"agent-question/launcher/internal/readiness"
)

// GRPCClient probes a gRPC server through the standard health service.
type GRPCClient struct {
	target  string
	service string
	dial    func(target string) (healthpb.HealthClient, func() error, error)
}

// NewGRPCClient constructs a GRPCClient for target. The empty service name
// asks for the overall server status.
func NewGRPCClient(target string) *GRPCClient {
	return &GRPCClient{
		target: target,
		dial:   realGRPCDial,
	}
}

// Probe calls grpc.health.v1.Health/Check and requires SERVING.
func (c *GRPCClient) Probe(ctx context.Context) readiness.ProbeResult {
	start := time.Now()

	err := func() error {
		client, closeFn, err := c.dial(c.target)
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		defer closeFn() //nolint:errcheck

		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultProbeTimeout)
			defer cancel()
		}

		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: c.service})
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("health status %s", resp.GetStatus())
		}
		return nil
	}()

	return probeResult(c.target, start, err)
}

func realGRPCDial(target string) (healthpb.HealthClient, func() error, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return healthpb.NewHealthClient(conn), conn.Close, nil
}
