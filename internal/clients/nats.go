package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"agent-question/launcher/internal/config"
	"agent-question/launcher/internal/readiness"
)

// natsConn is the subset of *nats.Conn used by the probe. Defining an
// interface here allows test doubles to be injected without a live server.
type natsConn interface {
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSClient probes an optional NATS dependency.
type NATSClient struct {
	url     string
	connect func(url string, timeout time.Duration) (natsConn, error)
}

// NewNATSClient constructs a NATSClient. Connections are opened lazily
// inside Probe.
func NewNATSClient(cfg config.NATSConfig) *NATSClient {
	return &NATSClient{
		url:     cfg.URL,
		connect: realNATSConnect,
	}
}

// Probe connects and waits for a PING/PONG round trip, which proves the
// server is processing protocol traffic and not just accepting sockets.
func (c *NATSClient) Probe(ctx context.Context) readiness.ProbeResult {
	start := time.Now()
	timeout := timeoutFrom(ctx.Deadline())

	err := func() error {
		nc, err := c.connect(c.url, timeout)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer nc.Close()

		if err := nc.FlushTimeout(timeoutFrom(ctx.Deadline())); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		return nil
	}()

	return probeResult(c.url, start, err)
}

// realNATSConnect opens a NATS connection that does not try to reconnect;
// the wait loop does its own retrying.
func realNATSConnect(url string, timeout time.Duration) (natsConn, error) {
	nc, err := nats.Connect(url,
		nats.Name("agent-question-launcher"),
		nats.Timeout(timeout),
		nats.NoReconnect(),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return nc, nil
}
