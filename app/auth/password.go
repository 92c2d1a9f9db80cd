package auth

import (
	"net/http"

	"jobber/auth-api/internal"
	"jobber/auth-api/internal/service"
	"jobber/auth-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func ForgotPassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	req, ok := bind[service.ForgotPasswordRequest](c, requestID)
	if !ok {
		return
	}

	if err := d.Lifecycle.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		fail(c, err, requestID, "Failed to start password reset")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset email sent",
	})
}

func ResetPassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	req, ok := bind[service.ResetPasswordRequest](c, requestID)
	if !ok {
		return
	}

	if err := d.Lifecycle.ResetPassword(c.Request.Context(), c.Param("token"), req); err != nil {
		fail(c, err, requestID, "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password successfully updated.",
	})
}

func ChangePassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	req, ok := bind[service.ChangePasswordRequest](c, requestID)
	if !ok {
		return
	}

	if err := d.Lifecycle.ChangePassword(c.Request.Context(), middleware.Claims(c).Username, req); err != nil {
		fail(c, err, requestID, "Failed to change password")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password successfully updated.",
	})
}
