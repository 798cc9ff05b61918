package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"labledger.io/lims/internal/attribute"
	apperrors "labledger.io/lims/internal/pkg/errors"
)

// AttributeConfigRequest is the body of create and update calls.
// validation_rules may be a JSON object or the editor's JSON text.
type AttributeConfigRequest struct {
	EntityType      string          `json:"entity_type"`
	AttrName        string          `json:"attr_name"`
	DataType        string          `json:"data_type"`
	ValidationRules json.RawMessage `json:"validation_rules"`
	Description     *string         `json:"description"`
	Active          *bool           `json:"active"`
}

// Submission converts the request into lifecycle input.
func (r AttributeConfigRequest) Submission() (attribute.Submission, error) {
	sub := attribute.Submission{
		EntityType: r.EntityType,
		AttrName:   r.AttrName,
		DataType:   r.DataType,
		Active:     r.Active,
	}
	if r.Description != nil {
		sub.Description = *r.Description
	}

	raw := bytes.TrimSpace(r.ValidationRules)
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &sub.ValidationRules); err != nil {
			return attribute.Submission{}, err
		}
	} else {
		sub.ValidationRules = string(raw)
	}
	return sub, nil
}

// ValidateRequest is the body of validate and normalize calls.
type ValidateRequest struct {
	CustomAttributes map[string]any `json:"custom_attributes"`
	HistoricalKeys   []string       `json:"historical_keys"`
}

// ValidateBatchRequest is the body of validate-batch calls.
type ValidateBatchRequest struct {
	Items          []map[string]any `json:"items"`
	HistoricalKeys []string         `json:"historical_keys"`
}

// ValidateBatchResponse keeps one result per item, in input order.
type ValidateBatchResponse struct {
	Results []attribute.Result `json:"results"`
}

// NormalizeResponse carries the normalized custom_attributes.
type NormalizeResponse struct {
	CustomAttributes map[string]any `json:"custom_attributes"`
}

func invalidBody(err error) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.CodeInvalidRequest, "invalid request body", http.StatusBadRequest)
}

// bindJSON decodes the body into dst, reporting failures through c.Error.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(invalidBody(err))
		return false
	}
	return true
}
