package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fms-tracker-api/internal/service"
)

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	checks  map[string]ReadinessCheck
}

// NewMetricsHandler constructs a metrics handler. Checks run on /ready.
func NewMetricsHandler(metrics *service.MetricsService, checks map[string]ReadinessCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every readiness check and reports 503 when one fails.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
