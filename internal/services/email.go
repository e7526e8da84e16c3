package services

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/baketsu/backend/internal/config"
)

// EmailService sends account emails via SMTP. Email is a pure side channel:
// a failed send is logged by the caller and never fails the request that
// triggered it.
type EmailService struct {
	cfg *config.Config
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

// SendVerificationEmail sends the account verification link to a new user
func (s *EmailService) SendVerificationEmail(to, name, link string) error {
	subject := "Verify your Baketsu account"
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\n"+
			"Welcome to Baketsu. Please verify your email address by opening the link below:\r\n\r\n"+
			"%s\r\n\r\n"+
			"If you did not create this account, you can ignore this email.\r\n",
		name, link)

	return s.SendEmail(to, subject, body)
}

// SendEmail sends a plain-text email
func (s *EmailService) SendEmail(to, subject, body string) error {
	if s.cfg.SMTPHost == "" {
		return fmt.Errorf("SMTP not configured")
	}

	from := s.cfg.SMTPFromAddr
	if from == "" {
		from = s.cfg.SMTPUsername
	}
	fromHeader := from
	if s.cfg.SMTPFromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", s.cfg.SMTPFromName, from)
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s", fromHeader, to, subject, body)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" && s.cfg.SMTPPassword != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if s.cfg.SMTPPort == 465 {
		// Direct TLS connection
		return s.sendWithTLS(addr, from, auth, to, []byte(msg))
	}
	// Ports 587/25: smtp.SendMail upgrades with STARTTLS when offered
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg))
}

// sendWithTLS sends email using direct TLS (port 465)
func (s *EmailService) sendWithTLS(addr, from string, auth smtp.Auth, to string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial failed: %v", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("SMTP client failed: %v", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %v", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}
