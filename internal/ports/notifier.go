package ports

import (
	"context"
)

// Delivery status values
const (
	DeliverySuccess = "success"
	DeliveryError   = "error"
)

// EmailAlert is a parental-control alert sent by email
type EmailAlert struct {
	Scoring        int    `json:"scoring"`
	Reason         string `json:"reason"`
	Type           string `json:"type"`
	RecipientEmail string `json:"recipient_email"`
}

// WhatsAppAlert is an alert sent as a WhatsApp notification
type WhatsAppAlert struct {
	ToNumber string `json:"to_number"`
	Reason   string `json:"reason"`
}

// Delivery is the outcome of one notification attempt
type Delivery struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	MessageID string `json:"message_id,omitempty"`
}

// Notifier defines the interface for delivering alerts. Failures are reported
// in the Delivery rather than as errors, and are never retried.
type Notifier interface {
	SendEmailAlert(ctx context.Context, alert EmailAlert) Delivery
	SendWhatsApp(ctx context.Context, alert WhatsAppAlert) Delivery
}
