package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gleeclub/portal-api/internal/models"
	appErrors "github.com/gleeclub/portal-api/pkg/errors"
	"github.com/gleeclub/portal-api/pkg/response"
)

// AllowSelf grants access when the studentId route parameter matches the caller.
const AllowSelf = "SELF"

// SelfParam is the route parameter compared against the caller's ID.
const SelfParam = "studentId"

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	roles := make([]models.UserRole, 0, len(allowed))
	for _, a := range allowed {
		if a == AllowSelf {
			allowSelf = true
			continue
		}
		roles = append(roles, models.UserRole(a))
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if claims.HasRole(roles...) {
			c.Next()
			return
		}

		if allowSelf {
			if targetID := c.Param(SelfParam); targetID != "" && targetID == claims.UserID() {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
