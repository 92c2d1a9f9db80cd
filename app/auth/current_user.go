package auth

import (
	"net/http"

	"jobber/auth-api/internal"
	"jobber/auth-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func CurrentUser(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	u, err := d.Lifecycle.CurrentUser(c.Request.Context(), middleware.Claims(c).UserID)
	if err != nil {
		fail(c, err, requestID, "Failed to fetch current user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Authenticated user",
		"user":    u,
	})
}

func RefreshToken(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	res, err := d.Lifecycle.RefreshToken(c.Request.Context(), c.Param("username"))
	if err != nil {
		fail(c, err, requestID, "Failed to refresh token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Refresh token",
		"user":    res.User,
		"token":   res.Token,
	})
}
