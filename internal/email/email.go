package email

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

var ErrNotConfigured = errors.New("SMTP configuration missing")

// Mailer delivers a plain-text message to a single recipient.
type Mailer interface {
	Send(to, subject, body string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string

	send sendFunc
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		send:     smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.Host == "" || m.Port == "" || m.Username == "" || m.Password == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("recipient address is empty")
	}
	if strings.ContainsAny(to+subject, "\r\n") {
		return errors.New("header values must not contain line breaks")
	}

	from := m.From
	if from == "" {
		from = m.Username
	}

	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)

	if err := m.send(addr, auth, from, []string{to}, buildMessage(from, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n", from, to, subject, body))
}

// LicenseMessage is the email sent after a purchase mints a key.
func LicenseMessage(key string) (subject, body string) {
	subject = "Your CallTrack Pro license key"
	body = fmt.Sprintf(`Thanks for upgrading to CallTrack Pro!

Your license key:

    %s

Open CallTrack, go to Settings > Pro and paste the key to activate.
Keep this email; the key is all you need to reactivate on a new machine.
`, key)
	return subject, body
}
