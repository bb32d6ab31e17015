package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness of the service and its two stateful
// dependencies.
type HealthHandler struct {
	dbPing    func(ctx context.Context) error
	redisPing func(ctx context.Context) error
}

func NewHealthHandler(dbPing, redisPing func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, redisPing: redisPing}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	checks := gin.H{"database": "ok", "redis": "ok"}
	healthy := true

	if err := h.dbPing(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}
	if err := h.redisPing(ctx); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	result := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		result = "degraded"
	}

	c.JSON(status, gin.H{"status": result, "checks": checks})
}
