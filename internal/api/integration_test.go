package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-question/launcher/internal/clients"
	"agent-question/launcher/internal/readiness"
)

// flakyDB fails its first n probes, then answers.
type flakyDB struct {
	n     int32
	calls atomic.Int32
}

func (f *flakyDB) Probe(_ context.Context) readiness.ProbeResult {
	if f.calls.Add(1) <= f.n {
		return readiness.ProbeResult{Name: "agent-question-db:3306", OK: false, Error: "connection refused"}
	}
	return readiness.ProbeResult{Name: "agent-question-db:3306", OK: true, LatencyMs: 1}
}

// TestWaitFlow_202ThenReady verifies the happy path through a real Gate:
//  1. GET /ready → 503 before any wait
//  2. POST /api/v1/wait → 202 Accepted
//  3. GET /ready eventually → 200 once the background wait completes
//  4. GET /api/v1/wait → the finished WaitResult
func TestWaitFlow_202ThenReady(t *testing.T) {
	t.Parallel()

	deps := []readiness.Dependency{{Name: "mysql", Prober: &flakyDB{n: 2}}}
	policy := readiness.Policy{Interval: 10 * time.Millisecond, Multiplier: 1, MaxAttempts: 20}
	gate := readiness.New(policy, deps...)
	health := readiness.New(policy, clients.Guard(deps)...)

	router := NewRouter(gate, health, "launcher-test")
	srv := httptest.NewServer(router.Handler())
	defer srv.Close()

	client := srv.Client()

	r, err := client.Get(srv.URL + "/ready")
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, r.StatusCode)

	resp, err := client.Post(srv.URL+"/api/v1/wait", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode, "wait should return 202 Accepted")

	deadline := time.Now().Add(5 * time.Second)
	var lastCode int
	for time.Now().Before(deadline) {
		r, err := client.Get(srv.URL + "/ready")
		require.NoError(t, err)
		r.Body.Close()

		lastCode = r.StatusCode
		if lastCode == http.StatusOK {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Equal(t, http.StatusOK, lastCode, "GET /ready should return 200 after the wait completes")

	r, err = client.Get(srv.URL + "/api/v1/wait")
	require.NoError(t, err)
	defer r.Body.Close()
	require.Equal(t, http.StatusOK, r.StatusCode)

	var result readiness.WaitResult
	require.NoError(t, json.NewDecoder(r.Body).Decode(&result))
	assert.Equal(t, readiness.StatusOK, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.NotEmpty(t, result.RunID)
}

// heldDB blocks every probe until release is closed.
type heldDB struct {
	release chan struct{}
}

func (h *heldDB) Probe(ctx context.Context) readiness.ProbeResult {
	select {
	case <-h.release:
		return readiness.ProbeResult{Name: "agent-question-db:3306", OK: true}
	case <-ctx.Done():
		return readiness.ProbeResult{Name: "agent-question-db:3306", OK: false, Error: ctx.Err().Error()}
	}
}

// TestWaitFlow_ConcurrentPostsStartOneWait fires simultaneous POSTs at a real
// Gate: exactly one is accepted, the rest conflict.
func TestWaitFlow_ConcurrentPostsStartOneWait(t *testing.T) {
	t.Parallel()

	db := &heldDB{release: make(chan struct{})}
	policy := readiness.Policy{Interval: 10 * time.Millisecond, Multiplier: 1, MaxAttempts: 5}
	gate := readiness.New(policy, readiness.Dependency{Name: "mysql", Prober: db})

	srv := httptest.NewServer(NewRouter(gate, gate, "launcher-test").Handler())
	defer srv.Close()

	const posts = 8
	codes := make(chan int, posts)
	var wg sync.WaitGroup
	for i := 0; i < posts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := srv.Client().Post(srv.URL+"/api/v1/wait", "application/json", nil)
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for c := range codes {
		counts[c]++
	}
	assert.Equal(t, 1, counts[http.StatusAccepted])
	assert.Equal(t, posts-1, counts[http.StatusConflict])

	close(db.release)
	assert.Eventually(t, gate.IsReady, 5*time.Second, 10*time.Millisecond)
}
