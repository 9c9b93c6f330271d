package mailer

// Service is the outbound notification boundary. The auth core decides when
// to send and with which link; transport mechanics stop here.
type Service interface {
	SendWelcome(toEmail, toName, accountURL string) error
	SendPasswordReset(toEmail, toName, resetURL string) error
}
