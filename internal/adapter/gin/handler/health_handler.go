package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is any dependency whose liveness can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports the state of the backing services.
type HealthHandler struct {
	service string
	deps    map[string]Pinger
	log     *zap.Logger
}

// NewHealthHandler creates a HealthHandler probing deps by name.
func NewHealthHandler(service string, deps map[string]Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{service: service, deps: deps, log: log}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true
	for name, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			h.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "down"
			healthy = false
			continue
		}
		checks[name] = "up"
	}

	code, state := http.StatusOK, "healthy"
	if !healthy {
		code, state = http.StatusServiceUnavailable, "unhealthy"
	}
	c.JSON(code, gin.H{
		"status":  state,
		"service": h.service,
		"checks":  checks,
	})
}
