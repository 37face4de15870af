package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/huiqicai/hci-social-backend/pkg/jwt"
	"github.com/huiqicai/hci-social-backend/pkg/response"
)

// Context keys set by the auth middleware. They match pkg/log field names so
// the request logger can pick them up.
const (
	CtxUserID   = "user_id"
	CtxTenantID = "tenant_id"
)

// Auth returns a Gin middleware that requires a valid Bearer token and
// stores the actor's user and tenant IDs in the request context.
func Auth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}

		claims, err := manager.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxTenantID, claims.TenantID)
		c.Next()
	}
}
