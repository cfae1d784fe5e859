package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingPassword is returned when neither MYSQL_ROOT_PASSWORD nor
// DATABASE_URL supplies a database password.
var ErrMissingPassword = errors.New("MYSQL_ROOT_PASSWORD is required")

// Config is the root configuration for the launcher.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Probe        ProbeServerConfig  `mapstructure:"probe"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Wait         WaitConfig         `mapstructure:"wait"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Dependencies DependenciesConfig `mapstructure:"dependencies"`
}

// ServerConfig describes the application server started once the
// dependencies are ready.
type ServerConfig struct {
	Host    string   `mapstructure:"host"`
	Port    int      `mapstructure:"port"`
	Command []string `mapstructure:"command"`
	Message string   `mapstructure:"message"`
}

// ProbeServerConfig is the HTTP API used by orchestrator probes.
type ProbeServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	ServiceName  string `mapstructure:"service_name"`
	LogLevel     string `mapstructure:"log_level"`
	LogFile      string `mapstructure:"log_file"`
}

// WaitConfig bounds the readiness wait loop.
type WaitConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	MaxInterval  time.Duration `mapstructure:"max_interval"`
	Multiplier   float64       `mapstructure:"multiplier"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	MaxElapsed   time.Duration `mapstructure:"max_elapsed"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// DatabaseConfig is the MySQL server the launcher must wait for.
type DatabaseConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	URL        string `mapstructure:"url"`
	StrictAuth bool   `mapstructure:"strict_auth"`
}

// Addr returns host:port.
func (d DatabaseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// DependenciesConfig lists optional extra dependencies. An empty entry is
// not waited for.
type DependenciesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	GRPC     []string       `mapstructure:"grpc"`
	HTTP     []string       `mapstructure:"http"`
	TCP      []string       `mapstructure:"tcp"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error unless required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if required {
			return fmt.Errorf("loading env file %s: %w", path, err)
		}
	}
	return nil
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables. The database keys use the container's historical
// names (DB_HOST, DB_PORT, DB_USER, MYSQL_ROOT_PASSWORD, DATABASE_URL); every
// other key uses the LAUNCHER_ prefix (e.g. LAUNCHER_WAIT_MAX_ATTEMPTS).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LAUNCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDatabaseEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Server.Command = splitCommand(cfg.Server.Command)

	if cfg.Database.URL != "" {
		if err := applyDatabaseURL(&cfg.Database, cfg.Database.URL); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Validate reports configuration that makes a launch impossible.
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return ErrMissingPassword
	}
	if c.Database.Host == "" {
		return errors.New("database host is empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Wait.MaxAttempts <= 0 && c.Wait.MaxElapsed <= 0 {
		return errors.New("wait needs max_attempts or max_elapsed; an unbounded wait is not allowed")
	}
	if c.Wait.Interval <= 0 {
		return fmt.Errorf("invalid wait interval %s", c.Wait.Interval)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5050)
	v.SetDefault("server.command", []string{"uvicorn", "app.app:app", "--host", "${HOST}", "--port", "${PORT}"})
	v.SetDefault("server.message", "MySQL is up - starting server")

	v.SetDefault("probe.port", 8081)
	v.SetDefault("probe.read_timeout", 10*time.Second)
	v.SetDefault("probe.write_timeout", 10*time.Second)
	v.SetDefault("probe.shutdown_timeout", 30*time.Second)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.service_name", "agent-question-launcher")
	v.SetDefault("telemetry.log_level", "info")
	v.SetDefault("telemetry.log_file", "")

	v.SetDefault("wait.interval", 2*time.Second)
	v.SetDefault("wait.max_interval", 30*time.Second)
	v.SetDefault("wait.multiplier", 1.0)
	v.SetDefault("wait.max_attempts", 60)
	v.SetDefault("wait.max_elapsed", 5*time.Minute)
	v.SetDefault("wait.probe_timeout", 5*time.Second)

	v.SetDefault("database.host", "agent-question-db")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.url", "")
	v.SetDefault("database.strict_auth", false)

	v.SetDefault("dependencies.postgres.host", "")
	v.SetDefault("dependencies.postgres.port", 5432)
	v.SetDefault("dependencies.postgres.user", "postgres")
	v.SetDefault("dependencies.postgres.db", "postgres")
	v.SetDefault("dependencies.postgres.ssl_mode", "disable")

	v.SetDefault("dependencies.redis.host", "")
	v.SetDefault("dependencies.redis.port", 6379)
	v.SetDefault("dependencies.redis.db", 0)

	v.SetDefault("dependencies.nats.url", "")
	v.SetDefault("dependencies.kafka.brokers", []string{})
	v.SetDefault("dependencies.grpc", []string{})
	v.SetDefault("dependencies.http", []string{})
	v.SetDefault("dependencies.tcp", []string{})
}

// bindDatabaseEnv maps the unprefixed variables the container has always
// used onto the database keys. The first name found wins.
func bindDatabaseEnv(v *viper.Viper) {
	_ = v.BindEnv("database.host", "DB_HOST", "LAUNCHER_DATABASE_HOST")
	_ = v.BindEnv("database.port", "DB_PORT", "LAUNCHER_DATABASE_PORT")
	_ = v.BindEnv("database.user", "DB_USER", "LAUNCHER_DATABASE_USER")
	_ = v.BindEnv("database.password", "MYSQL_ROOT_PASSWORD", "LAUNCHER_DATABASE_PASSWORD")
	_ = v.BindEnv("database.name", "DB_NAME", "LAUNCHER_DATABASE_NAME")
	_ = v.BindEnv("database.url", "DATABASE_URL", "LAUNCHER_DATABASE_URL")
}

// splitCommand turns a command given as one string, as it arrives from
// LAUNCHER_SERVER_COMMAND, into argv. Lists from a config file are kept.
func splitCommand(argv []string) []string {
	if len(argv) != 1 || !strings.ContainsAny(argv[0], " \t\n") {
		return argv
	}
	return strings.Fields(argv[0])
}

// applyDatabaseURL overrides d with the components of a
// mysql[+driver]://user:pass@host:port/db URL.
func applyDatabaseURL(d *DatabaseConfig, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	scheme, _, _ := strings.Cut(u.Scheme, "+")
	if scheme != "mysql" && scheme != "mariadb" {
		return fmt.Errorf("DATABASE_URL scheme %q is not mysql", u.Scheme)
	}

	if host := u.Hostname(); host != "" {
		d.Host = host
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("DATABASE_URL port %q: %w", p, err)
		}
		d.Port = port
	}
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			d.User = name
		}
		if pw, ok := u.User.Password(); ok {
			d.Password = pw
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		d.Name = name
	}
	return nil
}
