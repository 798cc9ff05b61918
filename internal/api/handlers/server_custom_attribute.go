package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"labledger.io/lims/internal/domain"
)

func entityTypeParam(c *gin.Context) domain.EntityType {
	return domain.EntityType(c.Param("entity_type"))
}

// ValidateCustomAttributes handles POST /entities/:entity_type/custom-attributes/validate.
// An invalid payload is a 200 with valid=false; the caller decides what to do.
func (s *Server) ValidateCustomAttributes(c *gin.Context) {
	var req ValidateRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := s.attributes.Validate(c.Request.Context(), entityTypeParam(c), req.CustomAttributes, req.HistoricalKeys)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ValidateCustomAttributesBatch handles POST /entities/:entity_type/custom-attributes/validate-batch.
func (s *Server) ValidateCustomAttributesBatch(c *gin.Context) {
	var req ValidateBatchRequest
	if !bindJSON(c, &req) {
		return
	}

	results, err := s.attributes.ValidateBatch(c.Request.Context(), entityTypeParam(c), req.Items, req.HistoricalKeys)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ValidateBatchResponse{Results: results})
}

// NormalizeCustomAttributes handles POST /entities/:entity_type/custom-attributes/normalize.
// Invalid payloads are rejected with 422 and one field error per violation.
func (s *Server) NormalizeCustomAttributes(c *gin.Context) {
	var req ValidateRequest
	if !bindJSON(c, &req) {
		return
	}

	normalized, err := s.attributes.Normalize(c.Request.Context(), entityTypeParam(c), req.CustomAttributes, req.HistoricalKeys)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, NormalizeResponse{CustomAttributes: normalized})
}
