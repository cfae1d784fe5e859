package clients

import (
	"context"
	"net"
	"time"

	"agent-question/launcher/internal/readiness"
)

// TCPClient checks that something accepts connections on addr, the
// equivalent of `nc -z host port`.
type TCPClient struct {
	addr   string
	dialer *net.Dialer
}

func NewTCPClient(addr string) *TCPClient {
	return &TCPClient{
		addr:   addr,
		dialer: &net.Dialer{Timeout: defaultProbeTimeout},
	}
}

// Probe opens and immediately closes a TCP connection.
func (c *TCPClient) Probe(ctx context.Context) readiness.ProbeResult {
	start := time.Now()
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err == nil {
		_ = conn.Close()
	}
	return probeResult(c.addr, start, err)
}
