package service

import "time"

const (
	ExchangeEmailNotification = "jobber-email-notification"
	RoutingKeyAuthEmail       = "auth-email"

	ExchangeBuyerUpdate = "jobber-buyer-update"
	RoutingKeyUserBuyer = "user-buyer"
)

// Email templates the notification service knows about
const (
	TemplateVerifyEmail          = "verifyEmail"
	TemplateForgotPassword       = "forgotPassword"
	TemplateResetPasswordSuccess = "resetPasswordSuccess"
)

type VerificationRequested struct {
	ReceiverEmail string `json:"receiverEmail"`
	VerifyLink    string `json:"verifyLink"`
	Template      string `json:"template"`
}

type PasswordResetRequested struct {
	ReceiverEmail string `json:"receiverEmail"`
	ResetLink     string `json:"resetLink"`
	Username      string `json:"username"`
	Template      string `json:"template"`
}

type PasswordChanged struct {
	Username string `json:"username"`
	Template string `json:"template"`
}

// AccountCreated feeds the buyer projection in the users service
type AccountCreated struct {
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture"`
	Country        string    `json:"country"`
	CreatedAt      time.Time `json:"createdAt"`
	Type           string    `json:"type"`
}
