package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/unclebandit/partnerconnex-backend/internal/config"
)

// Mailer sends plain-text notifications over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg config.Mail) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Message builds the gomail message Send would deliver.
func (m *Mailer) Message(to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}

func (m *Mailer) Send(to, subject, body string) error {
	if err := m.dialer.DialAndSend(m.Message(to, subject, body)); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
