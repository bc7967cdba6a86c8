package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"complaint-desk/internal/core/auth"
	resp "complaint-desk/internal/transport/http/response"
)

const (
	KeyClaims = "claims"
	KeyUserID = "userId"
	KeyRole   = "role"
	KeyName   = "name"
)

// AuthJWT 校验 Bearer token；requireRole 为空表示任意已登录用户
func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.Abort(c, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			resp.Abort(c, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		if requireRole != "" && claims.Role != requireRole {
			resp.Abort(c, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}
		c.Set(KeyClaims, claims)
		c.Set(KeyUserID, claims.UID)
		c.Set(KeyRole, claims.Role)
		c.Set(KeyName, claims.Name)
		c.Next()
	}
}
