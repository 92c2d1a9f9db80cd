package auth

import (
	"net/http"

	"jobber/auth-api/internal"
	"jobber/auth-api/internal/service"

	"github.com/gin-gonic/gin"
)

func SignIn(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	req, ok := bind[service.SignInRequest](c, requestID)
	if !ok {
		return
	}

	res, err := d.Lifecycle.SignIn(c.Request.Context(), req)
	if err != nil {
		fail(c, err, requestID, "Failed to sign in user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User login successfully",
		"user":    res.User,
		"token":   res.Token,
	})
}
