package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: t.Parallel() is intentionally omitted in this package.
// These tests share process-global environment variables; t.Setenv
// would race with any concurrent reader.

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5050, cfg.Server.Port)
	assert.Equal(t, []string{"uvicorn", "app.app:app", "--host", "${HOST}", "--port", "${PORT}"}, cfg.Server.Command)
	assert.Equal(t, 8081, cfg.Probe.Port)
	assert.Equal(t, "agent-question-db", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "root", cfg.Database.User)
	assert.Empty(t, cfg.Database.Password)
	assert.Equal(t, 2*time.Second, cfg.Wait.Interval)
	assert.Equal(t, 60, cfg.Wait.MaxAttempts)
	assert.Equal(t, 1.0, cfg.Wait.Multiplier)
	assert.Empty(t, cfg.Dependencies.Redis.Host)
	assert.Empty(t, cfg.Dependencies.TCP)
}

func TestLoad_DatabaseEnv(t *testing.T) {
	t.Setenv("DB_HOST", "mysql.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USER", "app")
	t.Setenv("MYSQL_ROOT_PASSWORD", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mysql.internal", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Equal(t, "app", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "mysql.internal:3307", cfg.Database.Addr())
}

func TestLoad_PrefixedEnvOverride(t *testing.T) {
	t.Setenv("LAUNCHER_WAIT_MAX_ATTEMPTS", "5")
	t.Setenv("LAUNCHER_WAIT_INTERVAL", "250ms")
	t.Setenv("LAUNCHER_PROBE_PORT", "9090")
	t.Setenv("LAUNCHER_DEPENDENCIES_REDIS_HOST", "cache")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Wait.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Wait.Interval)
	assert.Equal(t, 9090, cfg.Probe.Port)
	assert.Equal(t, "cache", cfg.Dependencies.Redis.Host)
}

func TestLoad_DatabaseURLOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "ignored")
	t.Setenv("DATABASE_URL", "mysql+pymysql://agent:pw@db.example:3310/questions")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "db.example", cfg.Database.Host)
	assert.Equal(t, 3310, cfg.Database.Port)
	assert.Equal(t, "agent", cfg.Database.User)
	assert.Equal(t, "pw", cfg.Database.Password)
	assert.Equal(t, "questions", cfg.Database.Name)
}

func TestLoad_ServerCommandFromEnv(t *testing.T) {
	t.Setenv("LAUNCHER_SERVER_COMMAND", "gunicorn app:app --bind ${HOST}:${PORT}")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"gunicorn", "app:app", "--bind", "${HOST}:${PORT}"}, cfg.Server.Command)
}

func TestSplitCommand(t *testing.T) {
	assert.Equal(t, []string{"uvicorn", "app.app:app"}, splitCommand([]string{"  uvicorn\tapp.app:app "}))
	assert.Equal(t, []string{"./server"}, splitCommand([]string{"./server"}))
	assert.Equal(t, []string{"sh", "-c", "exec server --port 1"}, splitCommand([]string{"sh", "-c", "exec server --port 1"}))
	assert.Empty(t, splitCommand(nil))
}

func TestLoad_DatabaseURLWrongScheme(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:///local.db")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not mysql")
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "launcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  command: ["gunicorn", "app:app"]
wait:
  max_attempts: 3
dependencies:
  tcp: ["broker:9000"]
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"gunicorn", "app:app"}, cfg.Server.Command)
	assert.Equal(t, 3, cfg.Wait.MaxAttempts)
	assert.Equal(t, []string{"broker:9000"}, cfg.Dependencies.TCP)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Dependencies.Kafka.Brokers)
}

func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LAUNCHER_TEST_ENV_FILE_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LAUNCHER_TEST_ENV_FILE_KEY") })

	require.NoError(t, LoadEnvFile(path, true))
	assert.Equal(t, "from-file", os.Getenv("LAUNCHER_TEST_ENV_FILE_KEY"))

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env"), false))
	assert.Error(t, LoadEnvFile(filepath.Join(dir, "missing.env"), true))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Database.Password = "pw"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		errSub  string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing password",
			mutate:  func(c *Config) { c.Database.Password = "" },
			wantErr: ErrMissingPassword,
		},
		{
			name:   "unbounded wait",
			mutate: func(c *Config) { c.Wait.MaxAttempts = 0; c.Wait.MaxElapsed = 0 },
			errSub: "unbounded",
		},
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Server.Port = 70000 },
			errSub: "invalid server port",
		},
		{
			name:   "zero interval",
			mutate: func(c *Config) { c.Wait.Interval = 0 },
			errSub: "invalid wait interval",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.errSub != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errSub)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
