package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-question/launcher/internal/config"
)

func testDBConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     "agent-question-db",
		Port:     3306,
		User:     "root",
		Password: "pw",
	}
}

// makeMySQLClient returns a MySQLClient whose connections come from sqlmock.
func makeMySQLClient(t *testing.T, cfg config.DatabaseConfig, pingErr error) (*MySQLClient, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	ping := mock.ExpectPing()
	if pingErr != nil {
		ping.WillReturnError(pingErr)
	}
	mock.ExpectClose()

	return &MySQLClient{
		cfg: cfg,
		open: func(_ string) (sqlPinger, error) {
			return db, nil
		},
	}, mock
}

func TestMySQLProbe(t *testing.T) {
	t.Parallel()

	accessDenied := &mysql.MySQLError{Number: 1045, Message: "Access denied for user 'root'"}

	tests := []struct {
		name       string
		strict     bool
		pingErr    error
		wantOK     bool
		wantErrSub string
	}{
		{
			name:   "success — server answers ping",
			wantOK: true,
		},
		{
			name:       "failure — connection refused",
			pingErr:    errors.New("dial tcp 10.0.0.5:3306: connect: connection refused"),
			wantOK:     false,
			wantErrSub: "connection refused",
		},
		{
			name:    "access denied counts as alive",
			pingErr: accessDenied,
			wantOK:  true,
		},
		{
			name:       "access denied fails in strict mode",
			strict:     true,
			pingErr:    accessDenied,
			wantOK:     false,
			wantErrSub: "Access denied",
		},
		{
			name:       "other server errors are failures",
			pingErr:    &mysql.MySQLError{Number: 1040, Message: "Too many connections"},
			wantOK:     false,
			wantErrSub: "Too many connections",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := testDBConfig()
			cfg.StrictAuth = tc.strict
			client, mock := makeMySQLClient(t, cfg, tc.pingErr)

			result := client.Probe(context.Background())

			assert.Equal(t, "agent-question-db:3306", result.Name)
			assert.Equal(t, tc.wantOK, result.OK)
			if tc.wantErrSub != "" {
				assert.Contains(t, result.Error, tc.wantErrSub)
			}
			if tc.wantOK {
				assert.Empty(t, result.Error)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMySQLProbe_OpenError(t *testing.T) {
	t.Parallel()

	client := &MySQLClient{
		cfg: testDBConfig(),
		open: func(_ string) (sqlPinger, error) {
			return nil, errors.New("invalid DSN")
		},
	}

	result := client.Probe(context.Background())
	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "invalid DSN")
}

func TestMySQLClient_DSN(t *testing.T) {
	t.Parallel()

	cfg := testDBConfig()
	cfg.Name = "questions"
	client := NewMySQLClient(cfg)

	parsed, err := mysql.ParseDSN(client.DSN())
	require.NoError(t, err)
	assert.Equal(t, "root", parsed.User)
	assert.Equal(t, "pw", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "agent-question-db:3306", parsed.Addr)
	assert.Equal(t, "questions", parsed.DBName)
	assert.Equal(t, defaultProbeTimeout, parsed.Timeout)
}

func TestNewMySQLClient(t *testing.T) {
	t.Parallel()

	client := NewMySQLClient(testDBConfig())
	assert.NotNil(t, client.open)
	assert.Equal(t, "agent-question-db", client.cfg.Host)
}
