package factory

import (
	"fmt"

	"github.com/mikey/phish-screen/internal/adapters/notify"
	"github.com/mikey/phish-screen/internal/config"
	"github.com/mikey/phish-screen/internal/ports"
	"go.uber.org/zap"
)

// NotifierFactory creates the alert notifier
type NotifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNotifierFactory creates a new notifier factory
func NewNotifierFactory(cfg *config.Config, logger *zap.Logger) *NotifierFactory {
	return &NotifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateNotifier creates a notifier whose email transport is either the HTTP relay or SMTP
func (f *NotifierFactory) CreateNotifier() (ports.Notifier, error) {
	notifyCfg := f.cfg.GetNotify()
	client := notify.NewHTTPClient(notifyCfg.Timeout)

	var email notify.EmailSender
	switch notifyCfg.EmailTransport {
	case "http":
		email = notify.NewHTTPEmailSender(notifyCfg.EmailEndpoint, client)
	case "smtp":
		smtpCfg := notifyCfg.SMTP
		email = notify.NewSMTPMailer(smtpCfg.Address, smtpCfg.From, smtpCfg.Username, smtpCfg.Password, f.logger)
	default:
		return nil, fmt.Errorf("unsupported email transport: %s", notifyCfg.EmailTransport)
	}

	f.logger.Debug("Notifier configured",
		zap.String("email_transport", notifyCfg.EmailTransport),
		zap.Bool("whatsapp_enabled", notifyCfg.WhatsAppEndpoint != ""))
	return notify.NewNotifier(email, notifyCfg.WhatsAppEndpoint, client, f.logger), nil
}
