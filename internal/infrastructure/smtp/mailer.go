package smtp

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/credential-api/internal/config"
)

// Mailer delivers notification templates over SMTP. It satisfies the Notifier
// collaborator consumed by the registration flow.
type Mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

// Send renders the named template with data and emails it to destination.
func (m *Mailer) Send(_ context.Context, destination, templateID string, data map[string]string) error {
	subject, body, err := render(templateID, data)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, destination, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{destination}, []byte(msg))
}

func render(templateID string, data map[string]string) (subject, body string, err error) {
	switch templateID {
	case "verification":
		return "Verify your email", "Your verification code: " + data["ticket"], nil
	default:
		return "", "", fmt.Errorf("unknown template %q", templateID)
	}
}
