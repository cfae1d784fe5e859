package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"agent-question/launcher/internal/readiness"
)

// waitService is the subset of *readiness.Gate behind the wait and readiness
// routes. Declaring it as an interface allows test doubles to be injected.
type waitService interface {
	Start(ctx context.Context) error
	IsReady() bool
	IsWaiting() bool
	LastResult() *readiness.WaitResult
}

// healthService runs a single probe round for deep health.
type healthService interface {
	Probe(ctx context.Context) readiness.AttemptResult
}

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	gate   waitService
	health healthService
}

// StartWait handles POST /api/v1/wait.
// It returns 202 when a new background wait was started, or 409 if one is
// already in progress.
func (h *Handler) StartWait(c *gin.Context) {
	err := h.gate.Start(context.Background()) //nolint:contextcheck
	if errors.Is(err, readiness.ErrWaitInProgress) {
		c.JSON(http.StatusConflict, gin.H{"status": readiness.StatusInProgress})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": readiness.StatusError, "error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// LastWait handles GET /api/v1/wait.
// It returns the most recent wait result, or 404 if no wait has finished.
func (h *Handler) LastWait(c *gin.Context) {
	result := h.gate.LastResult()
	if result == nil {
		status := "not-started"
		if h.gate.IsWaiting() {
			status = readiness.StatusInProgress
		}
		c.JSON(http.StatusNotFound, gin.H{"status": status})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Health handles GET /health.
// It always returns 200; this is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"mode":   "shallow",
	})
}

// DeepHealth handles GET /health/deep.
// It probes every configured dependency once and returns 200 only when every
// probe is OK.
func (h *Handler) DeepHealth(c *gin.Context) {
	round := h.health.Probe(c.Request.Context())

	status := "healthy"
	code := http.StatusOK
	if !round.OK {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":       status,
		"dependencies": round.Probes,
	})
}

// Ready handles GET /ready.
// It returns 200 only after a successful wait; 503 otherwise.
func (h *Handler) Ready(c *gin.Context) {
	if h.gate.IsReady() {
		c.JSON(http.StatusOK, gin.H{"ready": true})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
}
