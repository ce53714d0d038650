package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"learnhub/internal/model"
	"learnhub/internal/pkg/jwtutil"
	"learnhub/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
	ContextRoleKey     = "role"
)

func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, 401, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, 401, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		role := model.Role(claims.Role)
		if !role.Valid() {
			role = model.RoleStandard
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// RequireRole gates a route group on the role claim. Role checks live here,
// at the boundary, so services never re-derive them from raw claims.
func RequireRole(required model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleAny, exists := c.Get(ContextRoleKey)
		if !exists {
			response.Error(c, 401, response.CodeUnauthorized, "missing role claim")
			c.Abort()
			return
		}
		role, ok := roleAny.(model.Role)
		if !ok || role != required {
			response.Error(c, 403, response.CodeForbidden, "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}
