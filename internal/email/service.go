package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/medcore/records-api/internal/config"
	"github.com/medcore/records-api/internal/model"
)

// Service delivers outbound mail. Delivery is best effort; callers log
// failures and move on.
type Service interface {
	SendPatientInfo(event *model.PatientInfoEvent) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendPatientInfo(event *model.PatientInfoEvent) error {
	p := event.Patient

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", p.Email)
	m.SetHeader("Subject", "Your patient record summary")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hello %s %s,\n\nDr. %s has shared your record summary.\n\nName: %s %s\nEmail: %s\nDate of birth: %s\n",
		p.FirstName, p.LastName,
		event.PhysicianName,
		p.FirstName, p.LastName,
		p.Email,
		p.DOB.String(),
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send patient info email: %w", err)
	}
	return nil
}
