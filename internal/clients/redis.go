package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"agent-question/launcher/internal/config"
	"agent-question/launcher/internal/readiness"
)

// redisPinger is the interface used by RedisClient for health probing.
// It is implemented by the real go-redis client and by test doubles.
type redisPinger interface {
	PingResult(ctx context.Context) (string, error)
	Close() error
}

// realRedisPinger adapts a *redis.Client to redisPinger so tests do not
// need to construct a *redis.StatusCmd.
type realRedisPinger struct {
	client *redis.Client
}

func (r *realRedisPinger) PingResult(ctx context.Context) (string, error) {
	return r.client.Ping(ctx).Result()
}

func (r *realRedisPinger) Close() error {
	return r.client.Close()
}

// RedisClient probes an optional Redis dependency.
type RedisClient struct {
	cfg    config.RedisConfig
	pinger redisPinger
}

// NewRedisClient creates a RedisClient. The go-redis client is built lazily
// on each Probe call and closed afterwards.
func NewRedisClient(cfg config.RedisConfig) *RedisClient {
	return &RedisClient{cfg: cfg}
}

func (c *RedisClient) addr() string {
	return fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
}

// Probe sends PING and expects PONG.
func (c *RedisClient) Probe(ctx context.Context) readiness.ProbeResult {
	start := time.Now()

	err := func() error {
		p := c.pinger
		if p == nil {
			p = &realRedisPinger{
				client: redis.NewClient(&redis.Options{
					Addr:       c.addr(),
					Password:   c.cfg.Password,
					DB:         c.cfg.DB,
					MaxRetries: -1,
				}),
			}
			defer p.Close() //nolint:errcheck
		}

		val, err := p.PingResult(ctx)
		if err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		if val != "PONG" {
			return fmt.Errorf("unexpected PING response: %q", val)
		}
		return nil
	}()

	return probeResult(c.addr(), start, err)
}
