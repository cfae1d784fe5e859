package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"agent-question/launcher/internal/config"
	"agent-question/launcher/internal/readiness"
)

// kafkaConn is the subset of *kafka.Conn used by the probe.
type kafkaConn interface {
	Brokers() ([]kafka.Broker, error)
	Close() error
}

// KafkaClient probes an optional Kafka cluster.
type KafkaClient struct {
	brokers []string
	dial    func(ctx context.Context, addr string) (kafkaConn, error)
}

// NewKafkaClient constructs a KafkaClient for the given bootstrap brokers.
func NewKafkaClient(cfg config.KafkaConfig) *KafkaClient {
	return &KafkaClient{
		brokers: cfg.Brokers,
		dial:    realKafkaDial,
	}
}

// Probe tries the bootstrap brokers in order and succeeds as soon as one of
// them returns cluster metadata with at least one broker.
func (c *KafkaClient) Probe(ctx context.Context) readiness.ProbeResult {
	start := time.Now()
	name := strings.Join(c.brokers, ",")

	var errs []error
	for _, addr := range c.brokers {
		err := c.probeBroker(ctx, addr)
		if err == nil {
			return probeResult(name, start, nil)
		}
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no brokers configured"))
	}
	return probeResult(name, start, errors.Join(errs...))
}

func (c *KafkaClient) probeBroker(ctx context.Context, addr string) error {
	conn, err := c.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	brokers, err := conn.Brokers()
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if len(brokers) == 0 {
		return errors.New("metadata lists no brokers")
	}
	return nil
}

func realKafkaDial(ctx context.Context, addr string) (kafkaConn, error) {
	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	return conn, nil
}
