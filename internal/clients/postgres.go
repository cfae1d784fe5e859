package clients

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agent-question/launcher/internal/config"
	"agent-question/launcher/internal/readiness"
)

// dbPinger abstracts the pgxpool.Pool methods used in Probe so that tests
// can inject a fake without standing up a real database.
type dbPinger interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresClient probes an optional Postgres dependency.
type PostgresClient struct {
	cfg     config.PostgresConfig
	connect func(ctx context.Context, cfg config.PostgresConfig) (dbPinger, error)
}

// NewPostgresClient creates a PostgresClient. No connection is made at
// construction time; each probe opens and closes its own pool.
func NewPostgresClient(cfg config.PostgresConfig) *PostgresClient {
	return &PostgresClient{
		cfg:     cfg,
		connect: realConnect,
	}
}

// Probe pings the server and runs a trivial query, so a server that is still
// replaying its WAL and rejecting queries is not reported ready.
func (c *PostgresClient) Probe(ctx context.Context) readiness.ProbeResult {
	start := time.Now()
	name := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	err := func() error {
		pool, err := c.connect(ctx, c.cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}

		var one int
		if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
			return fmt.Errorf("select 1: %w", err)
		}
		return nil
	}()

	return probeResult(name, start, err)
}

// realConnect opens a single-connection pgxpool.Pool.
func realConnect(ctx context.Context, cfg config.PostgresConfig) (dbPinger, error) {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.DB,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}

	poolCfg, err := pgxpool.ParseConfig(dsn.String())
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	poolCfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}

	return pool, nil
}
