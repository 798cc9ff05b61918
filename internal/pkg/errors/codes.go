package errors

import (
	"net/http"
)

// Error codes are stable machine-readable identifiers.
// Messages accompany them for administrators; the UI may localize by code.

// Attribute config error codes.
const (
	CodeAttributeConfigNotFound = "ATTRIBUTE_CONFIG_NOT_FOUND"
	CodeAttributeConflict       = "ATTRIBUTE_CONFLICT"
	CodeAttributeImmutable      = "ATTRIBUTE_FIELD_IMMUTABLE"
	CodeInvalidRulesJSON        = "VALIDATION_RULES_INVALID_JSON"
	CodeInvalidRules            = "VALIDATION_RULES_INVALID"
)

// Custom attribute instance error codes.
const (
	CodeCustomAttributesInvalid = "CUSTOM_ATTRIBUTES_INVALID"
	CodeEntityTypeInvalid       = "ENTITY_TYPE_INVALID"
)

// Auth error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
)

// Validation error codes.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
)

// ErrAttributeConfigNotFound creates an attribute config not found error.
func ErrAttributeConfigNotFound(id string) *AppError {
	return (&AppError{
		Code:       CodeAttributeConfigNotFound,
		Message:    "attribute config not found",
		HTTPStatus: http.StatusNotFound,
	}).WithParams(map[string]interface{}{"id": id})
}

// ErrAttributeConflict creates the 409 for a taken (entity_type, attr_name).
// The local guard and the store constraint pass the same message.
func ErrAttributeConflict(entityType, attrName, message string) *AppError {
	return (&AppError{
		Code:       CodeAttributeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}).WithParams(map[string]interface{}{
		"entity_type": entityType,
		"attr_name":   attrName,
	})
}

// ErrEntityTypeInvalid creates a bad request error for an unknown entity type path segment.
func ErrEntityTypeInvalid(entityType string) *AppError {
	return (&AppError{
		Code:       CodeEntityTypeInvalid,
		Message:    "unknown entity type: " + entityType,
		HTTPStatus: http.StatusBadRequest,
	}).WithParams(map[string]interface{}{"entity_type": entityType})
}
