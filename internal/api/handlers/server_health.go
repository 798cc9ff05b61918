package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"labledger.io/lims/internal/api/openapi"
)

// Health status values.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// Health is the probe response body.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, Health{Status: HealthStatusOK})
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, Health{Status: HealthStatusOK})
		return
	}

	checks := map[string]string{"database": "ok"}
	status, httpStatus := HealthStatusOK, http.StatusOK
	if err := s.db.Ping(c.Request.Context()); err != nil {
		checks["database"] = "error"
		status, httpStatus = HealthStatusDegraded, http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, Health{Status: status, Checks: checks})
}

// GetOpenAPIDocument handles GET /openapi.yaml.
func (s *Server) GetOpenAPIDocument(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml; charset=utf-8", openapi.Document())
}
