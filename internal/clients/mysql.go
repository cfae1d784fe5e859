package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"

	"agent-question/launcher/internal/config"
	"agent-question/launcher/internal/readiness"
)

// mysqlAccessDenied is ER_ACCESS_DENIED_ERROR.
const mysqlAccessDenied = 1045

// sqlPinger abstracts the *sql.DB methods used in Probe so that tests can
// inject a sqlmock database.
type sqlPinger interface {
	PingContext(ctx context.Context) error
	Close() error
}

// MySQLClient pings the MySQL server the application depends on.
type MySQLClient struct {
	cfg  config.DatabaseConfig
	open func(dsn string) (sqlPinger, error)
}

// NewMySQLClient creates a MySQLClient. A fresh connection is opened for
// every probe and closed afterwards; nothing is held between probes.
func NewMySQLClient(cfg config.DatabaseConfig) *MySQLClient {
	return &MySQLClient{
		cfg:  cfg,
		open: realOpenMySQL,
	}
}

// DSN returns the go-sql-driver DSN for the configured server.
func (c *MySQLClient) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.cfg.User
	mc.Passwd = c.cfg.Password
	mc.Net = "tcp"
	mc.Addr = c.cfg.Addr()
	mc.DBName = c.cfg.Name
	mc.Timeout = defaultProbeTimeout
	return mc.FormatDSN()
}

// Probe pings the server. Like mysqladmin ping, a server that answers with
// "access denied" is running and counts as reachable, unless StrictAuth is
// set.
func (c *MySQLClient) Probe(ctx context.Context) readiness.ProbeResult {
	start := time.Now()
	name := c.cfg.Addr()

	db, err := c.open(c.DSN())
	if err != nil {
		return probeResult(name, start, fmt.Errorf("opening mysql: %w", err))
	}
	defer db.Close() //nolint:errcheck

	err = db.PingContext(ctx)
	if err != nil && !c.cfg.StrictAuth && isAccessDenied(err) {
		slog.WarnContext(ctx, "mysql reachable but rejected credentials", "addr", name, "user", c.cfg.User)
		err = nil
	}
	if err != nil {
		err = fmt.Errorf("ping: %w", err)
	}
	return probeResult(name, start, err)
}

func isAccessDenied(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlAccessDenied
}

// realOpenMySQL opens a single-connection *sql.DB.
func realOpenMySQL(dsn string) (sqlPinger, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)
	return db, nil
}
