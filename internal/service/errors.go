package service

import "errors"

// Business rule violations. Handlers answer these with a 4xx, anything else
// coming out of the lifecycle is an internal fault.
var (
	ErrValidation            = errors.New("validation failed")
	ErrDuplicateIdentity     = errors.New("username or email already registered")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrInvalidOrUsedToken    = errors.New("verification token is either invalid or is already used")
	ErrExpiredOrInvalidToken = errors.New("password reset token has expired or is invalid")
	ErrUnknownEmail          = errors.New("email is invalid")
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrPasswordReuse         = errors.New("new password cannot be same as old password")
	ErrUploadFailure         = errors.New("file upload failed")
)
