// Package handlers implements the HTTP API of the LIMS attribute service.
//
// Handlers decode requests, call the service layer and hand failures to the
// ErrorHandler middleware via c.Error. Routes are registered by
// RegisterHandlers so the contract in internal/api/openapi stays the single
// list of endpoints.
//
// Import Path: labledger.io/lims/internal/api/handlers
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"labledger.io/lims/internal/service"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the API handlers.
type Server struct {
	db         Pinger
	configs    *service.AttributeConfigService
	attributes *service.CustomAttributeService
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	// DB is optional; without it readiness reports only the process.
	DB               Pinger
	AttributeConfigs *service.AttributeConfigService
	CustomAttributes *service.CustomAttributeService
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		db:         deps.DB,
		configs:    deps.AttributeConfigs,
		attributes: deps.CustomAttributes,
	}
}

// RouteOptions customizes route registration.
type RouteOptions struct {
	// WriteMiddlewares guard every route that changes attribute configs.
	WriteMiddlewares []gin.HandlerFunc
}

// RegisterHandlers mounts every API route on r.
func RegisterHandlers(r gin.IRouter, s *Server, opts RouteOptions) {
	write := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, opts.WriteMiddlewares...), h)
	}

	r.GET("/openapi.yaml", s.GetOpenAPIDocument)

	configs := r.Group("/attribute-configs")
	configs.GET("", s.ListAttributeConfigs)
	configs.GET("/check-name", s.CheckAttributeName)
	configs.GET("/:id", s.GetAttributeConfig)
	configs.POST("", write(s.CreateAttributeConfig)...)
	configs.PUT("/:id", write(s.UpdateAttributeConfig)...)
	configs.DELETE("/:id", write(s.DeactivateAttributeConfig)...)
	configs.POST("/:id/activate", write(s.ActivateAttributeConfig)...)

	entities := r.Group("/entities/:entity_type/custom-attributes")
	entities.POST("/validate", s.ValidateCustomAttributes)
	entities.POST("/validate-batch", s.ValidateCustomAttributesBatch)
	entities.POST("/normalize", s.NormalizeCustomAttributes)
}

// RegisterHealth mounts the probes, which sit outside the versioned API.
func RegisterHealth(r gin.IRouter, s *Server) {
	r.GET("/health/live", s.GetLiveness)
	r.GET("/health/ready", s.GetReadiness)
}
