package mailer

import (
	"github.com/trailhead-tours/trailhead/pkg/logger"
)

// DevMailer logs instead of sending. Default outside production.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendWelcome(toEmail, toName, accountURL string) error {
	logger.Info("[DEV MAIL] Welcome email",
		"to", toEmail,
		"name", toName,
		"account_url", accountURL,
	)
	return nil
}

func (d *DevMailer) SendPasswordReset(toEmail, toName, resetURL string) error {
	logger.Info("[DEV MAIL] Password reset email",
		"to", toEmail,
		"name", toName,
		"reset_url", resetURL,
	)
	return nil
}
