package auth

import (
	"net/http"

	"jobber/auth-api/internal"
	"jobber/auth-api/internal/service"

	"github.com/gin-gonic/gin"
)

func Signup(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	req, ok := bind[service.SignupRequest](c, requestID)
	if !ok {
		return
	}

	res, err := d.Lifecycle.Signup(c.Request.Context(), req)
	if err != nil {
		fail(c, err, requestID, "Failed to sign up user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    res.User,
		"token":   res.Token,
	})
}
