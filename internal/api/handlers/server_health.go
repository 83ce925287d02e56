package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stateflow.dev/stateflow/internal/pkg/logger"
)

// Health is the body of the health probes.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, Health{Status: "ok"})
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	if s.ready == nil {
		c.JSON(http.StatusOK, Health{Status: "ok", Checks: map[string]string{"storage": "ok"}})
		return
	}
	if err := s.ready(c.Request.Context()); err != nil {
		logger.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, Health{
			Status: "degraded",
			Checks: map[string]string{"storage": "error"},
		})
		return
	}
	c.JSON(http.StatusOK, Health{Status: "ok", Checks: map[string]string{"storage": "ok"}})
}
