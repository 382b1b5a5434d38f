package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type sendMailFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

// SMTPMailer sends alert emails through an SMTP relay, upgrading to TLS when offered
type SMTPMailer struct {
	addr     string
	from     string
	username string
	password string
	send     sendMailFunc
	logger   *zap.Logger
}

// NewSMTPMailer creates a new SMTP mailer. Authentication is skipped when username is empty.
func NewSMTPMailer(addr, from, username, password string, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		addr:     addr,
		from:     from,
		username: username,
		password: password,
		send:     smtp.SendMail,
		logger:   logger,
	}
}

// SendEmail sends one HTML message and returns its Message-ID
func (m *SMTPMailer) SendEmail(ctx context.Context, recipient, subject, html string) (string, error) {
	id := uuid.NewString()
	msg := m.buildMessage(id, recipient, subject, html, time.Now())

	var auth sasl.Client
	if m.username != "" {
		auth = sasl.NewPlainClient("", m.username, m.password)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.send(m.addr, auth, m.from, []string{recipient}, bytes.NewReader(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("failed to send mail via %s: %w", m.addr, err)
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}

	m.logger.Debug("Mail relayed", zap.String("addr", m.addr), zap.String("message_id", id))
	return id, nil
}

func (m *SMTPMailer) buildMessage(id, recipient, subject, html string, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@phish-screen>\r\n", id)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return b.Bytes()
}
