package middleware

import (
	"net/http"
	"strings"

	"jobber/auth-api/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionParser interface {
	Parse(token string) (*security.SessionClaims, error)
}

// NewJWTMiddleware requires a valid "Authorization: Bearer" session token
// and stores its claims as "claims"
func NewJWTMiddleware(p SessionParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Token is not available. Please login again.",
				"requestID": requestID,
			})
			return
		}

		claims, err := p.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid",
				"requestID": requestID,
			})

			zap.L().Debug("Failed to parse token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.Set("claims", claims)
		c.Set("userID", claims.UserID)
		c.Next()
	}
}

// Claims returns the session set by NewJWTMiddleware
func Claims(c *gin.Context) *security.SessionClaims {
	return c.MustGet("claims").(*security.SessionClaims)
}
