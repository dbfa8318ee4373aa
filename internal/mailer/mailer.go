package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"
	mail "gopkg.in/mail.v2"
)

const (
	FromName            = "Vitrine"
	maxRetries          = 3
	LowStockTemplate    = "low_stock.tmpl"
	TeamWelcomeTemplate = "team_welcome.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) error
}

// Render executes the "subject" and "body" blocks of an embedded template.
func Render(templateFile string, data any) (subject, body string, err error) {
	tmpl, err := template.ParseFS(FS, "templates/"+templateFile)
	if err != nil {
		return "", "", err
	}

	var s, b bytes.Buffer
	if err := tmpl.ExecuteTemplate(&s, "subject", data); err != nil {
		return "", "", err
	}
	if err := tmpl.ExecuteTemplate(&b, "body", data); err != nil {
		return "", "", err
	}
	return s.String(), b.String(), nil
}

// SMTPMailer delivers templated HTML mail through an SMTP relay.
type SMTPMailer struct {
	dialer    *mail.Dialer
	fromEmail string
	backoff   time.Duration
}

func NewSMTP(host string, port int, username, password, fromEmail string) *SMTPMailer {
	d := mail.NewDialer(host, port, username, password)
	d.Timeout = 10 * time.Second
	return &SMTPMailer{dialer: d, fromEmail: fromEmail, backoff: time.Second}
}

func (m *SMTPMailer) Send(templateFile, username, email string, data any) error {
	subject, body, err := Render(templateFile, data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", m.fromEmail, FromName)
	msg.SetAddressHeader("To", email, username)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if lastErr = m.dialer.DialAndSend(msg); lastErr == nil {
			return nil
		}
		// exponential backoff
		time.Sleep(m.backoff * time.Duration(1<<i))
	}
	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}

// LogMailer renders the message and logs it instead of sending; used when no
// SMTP relay is configured.
type LogMailer struct {
	logger *zap.SugaredLogger
}

func NewLogMailer(logger *zap.SugaredLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(templateFile, username, email string, data any) error {
	subject, _, err := Render(templateFile, data)
	if err != nil {
		return err
	}
	m.logger.Infow("email not sent (no smtp configured)", "to", email, "subject", subject)
	return nil
}
