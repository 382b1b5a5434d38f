package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mikey/phish-screen/internal/ports"
	"go.uber.org/zap"
)

const timeoutMessage = "Request timeout: El servidor tardó demasiado en responder"

// EmailSender delivers a rendered alert email and returns the provider's message id
type EmailSender interface {
	SendEmail(ctx context.Context, recipient, subject, html string) (string, error)
}

// HTTPEmailSender posts alert emails to a mail relay endpoint as {html, email, subject}
type HTTPEmailSender struct {
	endpoint string
	client   *http.Client
}

// NewHTTPEmailSender creates a new HTTP email sender
func NewHTTPEmailSender(endpoint string, client *http.Client) *HTTPEmailSender {
	return &HTTPEmailSender{endpoint: endpoint, client: client}
}

// SendEmail posts the message to the relay endpoint
func (s *HTTPEmailSender) SendEmail(ctx context.Context, recipient, subject, html string) (string, error) {
	return postJSON(ctx, s.client, s.endpoint, map[string]string{
		"html":    html,
		"email":   recipient,
		"subject": subject,
	})
}

// Notifier implements ports.Notifier. Email goes through an EmailSender and
// WhatsApp notifications are posted to an HTTP endpoint.
type Notifier struct {
	email            EmailSender
	whatsappEndpoint string
	client           *http.Client
	logger           *zap.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(email EmailSender, whatsappEndpoint string, client *http.Client, logger *zap.Logger) *Notifier {
	return &Notifier{
		email:            email,
		whatsappEndpoint: whatsappEndpoint,
		client:           client,
		logger:           logger,
	}
}

// NewHTTPClient returns a client with the notification timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// SendEmailAlert renders and sends an alert email
func (n *Notifier) SendEmailAlert(ctx context.Context, alert ports.EmailAlert) ports.Delivery {
	if alert.RecipientEmail == "" {
		return ports.Delivery{Status: ports.DeliveryError, Message: "recipient_email is required"}
	}

	html, err := RenderAlert(alert)
	if err != nil {
		return n.failed("email", fmt.Sprintf("Failed to send email: %v", err), err)
	}

	id, err := n.email.SendEmail(ctx, alert.RecipientEmail, AlertSubject, html)
	if err != nil {
		if isTimeout(err) {
			return n.failed("email", timeoutMessage, err)
		}
		return n.failed("email", fmt.Sprintf("Failed to send email via API: %v", err), err)
	}

	n.logger.Info("Alert email sent",
		zap.Int("scoring", alert.Scoring),
		zap.String("type", alert.Type),
		zap.String("message_id", id))
	return ports.Delivery{
		Status:    ports.DeliverySuccess,
		Message:   fmt.Sprintf("Alert email sent successfully to %s", alert.RecipientEmail),
		MessageID: id,
	}
}

// SendWhatsApp posts {to_number, reason} to the WhatsApp endpoint
func (n *Notifier) SendWhatsApp(ctx context.Context, alert ports.WhatsAppAlert) ports.Delivery {
	if alert.ToNumber == "" {
		return ports.Delivery{Status: ports.DeliveryError, Message: "to_number is required"}
	}
	if n.whatsappEndpoint == "" {
		return n.failed("whatsapp", "WhatsApp endpoint is not configured", nil)
	}

	id, err := postJSON(ctx, n.client, n.whatsappEndpoint, alert)
	if err != nil {
		if isTimeout(err) {
			return n.failed("whatsapp", timeoutMessage, err)
		}
		return n.failed("whatsapp", fmt.Sprintf("Failed to send WhatsApp notification via API: %v", err), err)
	}

	n.logger.Info("WhatsApp notification sent", zap.String("message_id", id))
	return ports.Delivery{
		Status:    ports.DeliverySuccess,
		Message:   fmt.Sprintf("WhatsApp notification sent successfully to %s", alert.ToNumber),
		MessageID: id,
	}
}

func (n *Notifier) failed(channel, message string, err error) ports.Delivery {
	n.logger.Warn("Notification failed", zap.String("channel", channel), zap.Error(err))
	return ports.Delivery{Status: ports.DeliveryError, Message: message}
}

// postJSON posts body and returns the "id" field of the JSON answer, if any
func postJSON(ctx context.Context, client *http.Client, endpoint string, body any) (string, error) {
	if endpoint == "" {
		return "", errors.New("endpoint is not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var answer struct {
		ID any `json:"id"`
	}
	if len(data) == 0 || json.Unmarshal(data, &answer) != nil || answer.ID == nil {
		return "", nil
	}
	return fmt.Sprint(answer.ID), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
