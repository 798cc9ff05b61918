package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"labledger.io/lims/internal/api/handlers"
	"labledger.io/lims/internal/api/middleware"
	"labledger.io/lims/internal/api/openapi"
	"labledger.io/lims/internal/config"
)

// APIBasePath prefixes every versioned route.
const APIBasePath = "/api/v1"

var defaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

func newRouter(cfg *config.Config, server *handlers.Server) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), cors.New(buildCORSConfig(cfg)), middleware.RequestID(), middleware.ErrorHandler())

	handlers.RegisterHealth(router, server)

	api := router.Group(APIBasePath)
	if cfg.Server.ValidateOpenAPI {
		doc, err := openapi.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load openapi document: %w", err)
		}
		api.Use(middleware.MustOpenAPIValidator(doc, APIBasePath))
	}

	handlers.RegisterHandlers(api, server, handlers.RouteOptions{
		WriteMiddlewares: writeGuards(cfg.Security),
	})
	return router, nil
}

// writeGuards requires a token with attribute_config:write on mutations.
// Without a signing key, writes are open.
func writeGuards(sec config.SecurityConfig) []gin.HandlerFunc {
	if sec.JWTSigningKey == "" {
		return nil
	}
	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte(sec.JWTSigningKey),
		Issuer:     sec.JWTIssuer,
	}
	return []gin.HandlerFunc{
		middleware.JWTAuth(jwtCfg),
		middleware.RequirePermission(middleware.PermissionAttributeConfigWrite),
	}
}

func buildCORSConfig(cfg *config.Config) cors.Config {
	out := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	wildcard := false
	for _, o := range cfg.Server.AllowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		origins = append(origins, o)
	}

	if wildcard && cfg.Server.UnsafeAllowAllOrigins {
		out.AllowAllOrigins = true
		out.AllowCredentials = false
		return out
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	out.AllowOrigins = origins
	return out
}
