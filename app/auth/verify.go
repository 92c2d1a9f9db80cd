package auth

import (
	"net/http"

	"jobber/auth-api/internal"
	"jobber/auth-api/internal/service"
	"jobber/auth-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func VerifyEmail(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	req, ok := bind[service.VerifyEmailRequest](c, requestID)
	if !ok {
		return
	}

	u, err := d.Lifecycle.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		fail(c, err, requestID, "Failed to verify email")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email has been verified successfully.",
		"user":    u,
	})
}

// ResendEmail mints a new verification link for the signed in account
func ResendEmail(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	req, ok := bind[service.ResendVerificationRequest](c, requestID)
	if !ok {
		return
	}

	u, err := d.Lifecycle.ResendVerification(c.Request.Context(), req.Email, middleware.Claims(c).UserID)
	if err != nil {
		fail(c, err, requestID, "Failed to resend verification email")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verification sent",
		"user":    u,
	})
}
