package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/clinexa/booking-api/pkg/logger"
)

type Service interface {
	SendAppointmentCreated(ctx context.Context, to, name, when string) error
	SendAppointmentConfirmed(ctx context.Context, to, name, when string) error
	SendAppointmentCancelled(ctx context.Context, to, name, when, reason string) error
	SendAppointmentReminder(ctx context.Context, to, name, when string) error
	SendWelcome(ctx context.Context, to, name string) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewSMTPService(cfg Config, logger *logger.Logger) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *smtpService) SendAppointmentCreated(ctx context.Context, to, name, when string) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your appointment request for <strong>%s</strong> has been received and is awaiting confirmation.</p>
<p>We will notify you once the clinic confirms it.</p>`, name, when)
	return s.send(to, "Appointment request received", body)
}

func (s *smtpService) SendAppointmentConfirmed(ctx context.Context, to, name, when string) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your appointment on <strong>%s</strong> has been confirmed.</p>
<p>Please arrive a few minutes early.</p>`, name, when)
	return s.send(to, "Appointment confirmed", body)
}

func (s *smtpService) SendAppointmentCancelled(ctx context.Context, to, name, when, reason string) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your appointment on <strong>%s</strong> has been cancelled.</p>`, name, when)
	if reason != "" {
		body += fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	return s.send(to, "Appointment cancelled", body)
}

func (s *smtpService) SendAppointmentReminder(ctx context.Context, to, name, when string) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>This is a reminder for your upcoming appointment at <strong>%s</strong>.</p>`, name, when)
	return s.send(to, "Appointment reminder", body)
}

func (s *smtpService) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Welcome! Your account has been created. You can now book appointments online.</p>`, name)
	return s.send(to, "Welcome", body)
}
