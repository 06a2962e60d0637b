// Package notify delivers outbound notifications (welcome emails, OTP
// codes, approval decisions) to the mail worker via a message queue.
package notify

import (
	"context"
)

// Template names understood by the mail worker.
const (
	TemplateWelcomeEmployee  = "welcome_employee"
	TemplateWelcomeCustomer  = "welcome_customer"
	TemplateEmailOTP         = "email_otp"
	TemplatePasswordReset    = "password_reset"
	TemplateApprovalDecision = "approval_decision"
	TemplateAccountSuspended = "account_suspended"
)

// Message is a single outbound notification.
type Message struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Notifier dispatches notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
