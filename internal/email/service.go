package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/pkg/logger"
)

// Service sends coordinator-facing notifications. Delivery is best effort;
// failures are logged and never propagate into the operation that triggered
// them.
type Service interface {
	CredentialRegenerated(ctx context.Context, incidentID, newCode string)
	EnrollmentCommitted(ctx context.Context, incidentID string, submitted []*model.PersonRecord)
}

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	Coordinator string
}

type smtpService struct {
	dialer *gomail.Dialer
	cfg    Config
	logger *logger.Logger
}

func NewSMTPService(cfg Config, log *logger.Logger) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
		logger: log,
	}
}

func (s *smtpService) CredentialRegenerated(ctx context.Context, incidentID, newCode string) {
	subject := fmt.Sprintf("Codigo de acceso regenerado - incidente %s", incidentID)
	body := fmt.Sprintf(
		"El codigo de acceso del incidente %s fue regenerado.\n\nNuevo codigo: %s\n\nLos codigos QR impresos anteriores dejaron de ser validos.",
		incidentID, newCode)
	s.send(subject, body)
}

func (s *smtpService) EnrollmentCommitted(ctx context.Context, incidentID string, submitted []*model.PersonRecord) {
	var b strings.Builder
	fmt.Fprintf(&b, "Se registraron %d personas en el incidente %s:\n\n", len(submitted), incidentID)
	for _, r := range submitted {
		role := "agente"
		if r.IsLeader {
			role = "responsable"
		}
		fmt.Fprintf(&b, "- %s %s (%s, %s)\n", r.Nombre, r.Apellido, role, r.Institucion)
	}
	s.send(fmt.Sprintf("Nuevo personal registrado - incidente %s", incidentID), b.String())
}

func (s *smtpService) send(subject, body string) {
	if s.cfg.Coordinator == "" {
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.Coordinator)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error(err, "failed to send notification email", "subject", subject)
	}
}
