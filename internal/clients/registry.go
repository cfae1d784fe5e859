package clients

import (
	"fmt"
	"strings"

	"agent-question/launcher/internal/config"
	"agent-question/launcher/internal/readiness"
)

// Dependencies builds the probe set described by cfg. MySQL is always
// present; every other dependency is included only when configured.
func Dependencies(cfg *config.Config) []readiness.Dependency {
	deps := []readiness.Dependency{
		{Name: "mysql", Prober: NewMySQLClient(cfg.Database)},
	}

	d := cfg.Dependencies
	if d.Postgres.Host != "" {
		deps = append(deps, readiness.Dependency{Name: "postgres", Prober: NewPostgresClient(d.Postgres)})
	}
	if d.Redis.Host != "" {
		deps = append(deps, readiness.Dependency{Name: "redis", Prober: NewRedisClient(d.Redis)})
	}
	if d.NATS.URL != "" {
		deps = append(deps, readiness.Dependency{Name: "nats", Prober: NewNATSClient(d.NATS)})
	}
	if len(d.Kafka.Brokers) > 0 {
		deps = append(deps, readiness.Dependency{Name: "kafka", Prober: NewKafkaClient(d.Kafka)})
	}
	for _, target := range unique(d.GRPC) {
		deps = append(deps, readiness.Dependency{Name: fmt.Sprintf("grpc:%s", target), Prober: NewGRPCClient(target)})
	}
	for _, url := range unique(d.HTTP) {
		deps = append(deps, readiness.Dependency{Name: fmt.Sprintf("http:%s", url), Prober: NewHTTPClient(url)})
	}
	for _, addr := range unique(d.TCP) {
		deps = append(deps, readiness.Dependency{Name: fmt.Sprintf("tcp:%s", addr), Prober: NewTCPClient(addr)})
	}
	return deps
}

// unique drops blank and repeated entries, keeping first-seen order. Names
// key the probe results, so a repeat would hide another probe's outcome.
func unique(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
