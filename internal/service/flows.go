package service

import "jobber/auth-api/internal/model"

// Each lifecycle flow has its own request type. The route decides which one
// to bind, so no flow ever sees another flow's fields.

// Flow is implemented by every lifecycle request type
type Flow interface {
	FlowName() string
}

func (SignupRequest) FlowName() string { return "signup" }
func (SignInRequest) FlowName() string { return "signin" }
func (VerifyEmailRequest) FlowName() string { return "verify-email" }
func (ResendVerificationRequest) FlowName() string { return "resend-verification" }
func (ForgotPasswordRequest) FlowName() string { return "forgot-password" }
func (ResetPasswordRequest) FlowName() string { return "reset-password" }
func (ChangePasswordRequest) FlowName() string { return "change-password" }

type SignupRequest struct {
	Username       string `json:"username" binding:"required,alphanum,min=4,max=12"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=4,max=12"`
	Country        string `json:"country" binding:"required"`
	ProfilePicture string `json:"profilePicture" binding:"required"`
}

// SignInRequest.Username holds either a username or an email
type SignInRequest struct {
	Username string `json:"username" binding:"required,min=4"`
	Password string `json:"password" binding:"required,min=4,max=12"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=4,max=12"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required,min=4,max=12"`
	NewPassword     string `json:"newPassword" binding:"required,min=4,max=12"`
}

// AuthResult is returned by the flows that log a user in
type AuthResult struct {
	User  *model.PublicUser `json:"user"`
	Token string            `json:"token"`
}
