package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"agent-question/launcher/internal/config"
)

// mockRedisPinger is a test double for redisPinger.
type mockRedisPinger struct {
	pingVal string
	pingErr error
}

func (m *mockRedisPinger) PingResult(_ context.Context) (string, error) {
	return m.pingVal, m.pingErr
}

func (m *mockRedisPinger) Close() error { return nil }

func TestRedisProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pingVal    string
		pingErr    error
		wantOK     bool
		wantErrSub string
	}{
		{
			name:    "success — PING returns PONG",
			pingVal: "PONG",
			wantOK:  true,
		},
		{
			name:       "failure — PING returns error",
			pingErr:    errors.New("connection refused"),
			wantOK:     false,
			wantErrSub: "connection refused",
		},
		{
			name:       "failure — PING returns unexpected value",
			pingVal:    "LOADING",
			wantOK:     false,
			wantErrSub: "unexpected PING response",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := &RedisClient{
				cfg:    config.RedisConfig{Host: "cache", Port: 6379},
				pinger: &mockRedisPinger{pingVal: tc.pingVal, pingErr: tc.pingErr},
			}

			result := client.Probe(context.Background())

			assert.Equal(t, "cache:6379", result.Name)
			assert.Equal(t, tc.wantOK, result.OK)
			if tc.wantErrSub != "" {
				assert.Contains(t, result.Error, tc.wantErrSub)
			}
			if tc.wantOK {
				assert.Empty(t, result.Error)
			}
		})
	}
}
