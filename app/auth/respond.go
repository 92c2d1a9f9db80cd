// Package auth holds the identity lifecycle endpoints
package auth

import (
	"errors"
	"net/http"

	"jobber/auth-api/internal/service"
	"jobber/auth-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type clientError struct {
	err     error
	status  int
	message string
}

// Business rule violations a client is allowed to see. Anything not listed
// is answered with a 500.
var clientErrors = []clientError{
	{service.ErrDuplicateIdentity, http.StatusBadRequest, "Invalid credentials. Email or Username"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	{service.ErrInvalidOrUsedToken, http.StatusBadRequest, "Verification token is either invalid or is already used."},
	{service.ErrExpiredOrInvalidToken, http.StatusBadRequest, "Token has been expired"},
	{service.ErrUnknownEmail, http.StatusBadRequest, "Email is invalid"},
	{service.ErrPasswordMismatch, http.StatusBadRequest, "Passwords do not match"},
	{service.ErrPasswordReuse, http.StatusBadRequest, "New password cannot be same as old password"},
	{service.ErrUploadFailure, http.StatusBadRequest, "File upload failed. Try again"},
}

// bind decodes the JSON body into the flow's request type and answers 400
// with the first validation message when it does not fit
func bind[T service.Flow](c *gin.Context, requestID string) (T, bool) {
	var req T

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     validators.Message(err),
			"requestID": requestID,
		})

		zap.L().Debug("Rejected request body",
			zap.Error(errors.Join(service.ErrValidation, err)),
			zap.String("flow", req.FlowName()),
			zap.String("requestID", requestID),
		)
		return req, false
	}

	return req, true
}

// fail maps a lifecycle error to a response
func fail(c *gin.Context, err error, requestID, logMessage string) {
	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			c.JSON(ce.status, gin.H{
				"error":     ce.message,
				"requestID": requestID,
			})

			if ce.err == service.ErrUploadFailure {
				zap.L().Error(logMessage, zap.Error(err), zap.String("requestID", requestID))
			}
			return
		}
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error(logMessage, zap.Error(err), zap.String("requestID", requestID))
}
