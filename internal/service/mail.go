package service

import (
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

// MailConfig carries SMTP settings from the application config.
type MailConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// SMTPSender delivers mail over plain SMTP. Implements MailSender.
type SMTPSender struct {
	cfg MailConfig
}

func NewSMTPSender(cfg MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	if to == s.cfg.From {
		return errors.New("invalid email address")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.From, s.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail, %w", err)
	}

	return nil
}
