package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendWelcome(toEmail, toName, accountURL string) error {
	if !m.enabled {
		return fmt.Errorf("mailersend not configured")
	}

	subject := "Welcome to Trailhead Tours"
	html := fmt.Sprintf(`
		<h2>Welcome to Trailhead Tours!</h2>
		<p>Hi %s,</p>
		<p>We're glad to have you. Manage your account here:</p>
		<p><a href="%s">Your account</a></p>
	`, toName, accountURL)
	text := fmt.Sprintf("Welcome to Trailhead Tours! Manage your account: %s", accountURL)

	return m.send(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendPasswordReset(toEmail, toName, resetURL string) error {
	if !m.enabled {
		return fmt.Errorf("mailersend not configured")
	}

	subject := "Your password reset token (valid for 10 minutes)"
	html := fmt.Sprintf(`
		<h2>Password reset</h2>
		<p>Hi %s,</p>
		<p>Forgot your password? Submit a PATCH request with your new password to:</p>
		<p><a href="%s">%s</a></p>
		<p>If you didn't request a reset, ignore this email.</p>
	`, toName, resetURL, resetURL)
	text := fmt.Sprintf("Forgot your password? Reset it here (valid 10 minutes): %s\n\nIf you didn't request a reset, ignore this email.", resetURL)

	return m.send(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) send(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
