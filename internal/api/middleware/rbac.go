package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	apperrors "labledger.io/lims/internal/pkg/errors"
)

// Permissions checked by the API.
const (
	PermissionAdmin                = "platform:admin"
	PermissionAttributeConfigWrite = "attribute_config:write"
)

// RequirePermission returns middleware that checks the token's permissions.
// PermissionAdmin satisfies every check.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms, exists := c.Get(ctxPermissions)
		if !exists {
			abortForbidden(c, "no permissions in context")
			return
		}
		permList, ok := perms.([]string)
		if !ok {
			abortForbidden(c, "invalid permissions type")
			return
		}

		if slices.Contains(permList, PermissionAdmin) || slices.Contains(permList, permission) {
			c.Next()
			return
		}

		abortForbidden(c, "insufficient permissions")
	}
}

func abortForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, apperrors.Forbidden(apperrors.CodeForbidden, msg))
}
