package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"labledger.io/lims/internal/api/middleware"
	"labledger.io/lims/internal/domain"
	apperrors "labledger.io/lims/internal/pkg/errors"
	"labledger.io/lims/internal/repository"
)

// AttributeConfigList is the body of GET /attribute-configs.
type AttributeConfigList struct {
	Items []domain.AttributeConfig `json:"items"`
}

type listConfigsQuery struct {
	EntityType string `form:"entity_type"`
	ActiveOnly bool   `form:"active_only"`
}

type checkNameQuery struct {
	EntityType string `form:"entity_type" binding:"required"`
	AttrName   string `form:"attr_name" binding:"required"`
	ExcludeID  string `form:"exclude_id"`
}

// ListAttributeConfigs handles GET /attribute-configs.
func (s *Server) ListAttributeConfigs(c *gin.Context) {
	var q listConfigsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInvalidRequest, "invalid query parameters", http.StatusBadRequest))
		return
	}

	items, err := s.configs.List(c.Request.Context(), repository.ListFilter{
		EntityType: domain.EntityType(q.EntityType),
		ActiveOnly: q.ActiveOnly,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, AttributeConfigList{Items: items})
}

// CheckAttributeName handles GET /attribute-configs/check-name.
func (s *Server) CheckAttributeName(c *gin.Context) {
	var q checkNameQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInvalidRequest, "entity_type and attr_name are required", http.StatusBadRequest))
		return
	}

	res, err := s.configs.CheckName(c.Request.Context(), domain.EntityType(q.EntityType), q.AttrName, q.ExcludeID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetAttributeConfig handles GET /attribute-configs/:id.
func (s *Server) GetAttributeConfig(c *gin.Context) {
	cfg, err := s.configs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// CreateAttributeConfig handles POST /attribute-configs.
func (s *Server) CreateAttributeConfig(c *gin.Context) {
	var req AttributeConfigRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := req.Submission()
	if err != nil {
		_ = c.Error(invalidBody(err))
		return
	}

	ctx := c.Request.Context()
	cfg, err := s.configs.Create(ctx, sub, middleware.Actor(ctx))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

// UpdateAttributeConfig handles PUT /attribute-configs/:id.
func (s *Server) UpdateAttributeConfig(c *gin.Context) {
	var req AttributeConfigRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := req.Submission()
	if err != nil {
		_ = c.Error(invalidBody(err))
		return
	}

	ctx := c.Request.Context()
	cfg, err := s.configs.Update(ctx, c.Param("id"), sub, middleware.Actor(ctx))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// DeactivateAttributeConfig handles DELETE /attribute-configs/:id.
// Configs are never removed; deletion deactivates.
func (s *Server) DeactivateAttributeConfig(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := s.configs.Deactivate(ctx, c.Param("id"), middleware.Actor(ctx))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ActivateAttributeConfig handles POST /attribute-configs/:id/activate.
func (s *Server) ActivateAttributeConfig(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := s.configs.Activate(ctx, c.Param("id"), middleware.Actor(ctx))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
