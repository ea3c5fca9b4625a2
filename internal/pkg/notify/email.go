package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/jalaleddinemaoukil/interventions-m1/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier sends mail over SMTP. When the SMTP settings are absent it
// logs and does nothing, so local setups work without a mail server.
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier creates a new mail notifier.
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendWelcome sends the post-registration welcome mail.
func (n *EmailNotifier) SendWelcome(ctx context.Context, toEmail string, fullName string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip welcome mail")
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		n.logger.Warn("email recipient empty, skip welcome mail")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[Helpdesk] Welcome")

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Welcome to Helpdesk</h2>
    <p>Hi %s, your account is ready.</p>
    <p>Log in to start tracking your interventions.</p>
  </div>
</body>
</html>`, html.EscapeString(fullName))
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("welcome email sent", slog.String("to", toEmail))
	return nil
}
