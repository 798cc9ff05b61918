package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "labledger.io/lims/internal/pkg/errors"
	"labledger.io/lims/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestErrorHandler_NoErrors(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := serve(router, http.MethodGet, "/ok")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorHandler_AppError(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), ErrorHandler())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrAttributeConfigNotFound("cfg-1"))
	})

	w := serve(router, http.MethodGet, "/fail")
	require.Equal(t, http.StatusNotFound, w.Code)

	var body apperrors.AppError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeAttributeConfigNotFound, body.Code)
	assert.Equal(t, "cfg-1", body.Params["id"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestErrorHandler_FieldErrors(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.POST("/configs", func(c *gin.Context) {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidRules, "min must be less than or equal to max").
			WithFieldErrors([]apperrors.FieldError{{
				Field:   "validation_rules",
				Code:    apperrors.CodeInvalidRules,
				Message: "min must be less than or equal to max",
			}}))
	})

	w := serve(router, http.MethodPost, "/configs")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body apperrors.AppError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.FieldErrors, 1)
	assert.Equal(t, "validation_rules", body.FieldErrors[0].Field)
}

func TestErrorHandler_GenericError(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/err", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("something unexpected"))
	})

	w := serve(router, http.MethodGet, "/err")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeInternal, body["code"])
	assert.NotContains(t, body["message"], "unexpected")
}

func TestErrorHandler_ResponseAlreadyWritten(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
		_ = c.Error(fmt.Errorf("late failure"))
	})

	w := serve(router, http.MethodGet, "/written")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.NotContains(t, w.Body.String(), apperrors.CodeInternal)
}

func TestRequestID_ReusesHeader(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	w = serve(router, http.MethodGet, "/id")
	assert.NotEmpty(t, w.Body.String())
}
