package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
	"github.com/sarops/incident-api/internal/service/audit"
	apperrors "github.com/sarops/incident-api/pkg/errors"
	"github.com/sarops/incident-api/pkg/metrics"
)

// Store maintains the access credentials of all incidents and enforces the
// single-active-credential invariant.
type Store interface {
	Issue(ctx context.Context, incidentID string, cfg model.CredentialConfig, createdBy uuid.UUID) (*model.AccessCredential, error)
	Regenerate(ctx context.Context, oldCredentialID uuid.UUID, cfg model.CredentialConfig, createdBy uuid.UUID) (*model.AccessCredential, error)
	Resolve(ctx context.Context, accessCode string) (*model.AccessCredential, error)
	AppendPersonnel(ctx context.Context, credentialID uuid.UUID, record *model.PersonRecord) (*model.PersonRecord, error)
	GetActiveForIncident(ctx context.Context, incidentID string) (*model.AccessCredential, error)
	ListPersonnel(ctx context.Context, credentialID uuid.UUID) ([]*model.PersonRecord, error)
}

type Service struct {
	repo            repository.CredentialRepository
	outboxRepo      repository.OutboxRepository
	auditor         *audit.Service
	presenter       *Presenter
	metrics         *metrics.Metrics
	defaultValidity time.Duration
	now             func() time.Time
}

func NewService(
	repo repository.CredentialRepository,
	outboxRepo repository.OutboxRepository,
	auditor *audit.Service,
	presenter *Presenter,
	m *metrics.Metrics,
	defaultValidity time.Duration,
) *Service {
	if defaultValidity <= 0 {
		defaultValidity = time.Duration(model.DefaultValidHours) * time.Hour
	}
	return &Service{
		repo:            repo,
		outboxRepo:      outboxRepo,
		auditor:         auditor,
		presenter:       presenter,
		metrics:         m,
		defaultValidity: defaultValidity,
		now:             time.Now,
	}
}

func (s *Service) Issue(ctx context.Context, incidentID string, cfg model.CredentialConfig, createdBy uuid.UUID) (*model.AccessCredential, error) {
	cred, err := s.newCredential(ctx, incidentID, cfg, createdBy)
	if err != nil {
		return nil, err
	}

	if err := s.repo.IssueExclusive(ctx, cred); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, apperrors.AlreadyActive(incidentID)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("incident", err)
		default:
			return nil, apperrors.Internal(fmt.Errorf("failed to issue credential: %w", err))
		}
	}

	s.decorate(cred)
	s.metrics.CredentialsIssued.Inc()
	s.auditor.Log(ctx, &createdBy, incidentID, "issue", "credential", cred.ID.String(), &audit.LogOptions{Changes: cred})
	s.publish(ctx, model.EventCredentialIssued, cred)

	return cred, nil
}

func (s *Service) Regenerate(ctx context.Context, oldCredentialID uuid.UUID, cfg model.CredentialConfig, createdBy uuid.UUID) (*model.AccessCredential, error) {
	old, err := s.repo.Get(ctx, oldCredentialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("credential", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to load credential: %w", err))
	}
	if !old.Active {
		return nil, apperrors.NotFound("credential", nil)
	}

	cred, err := s.newCredential(ctx, old.IncidentID, cfg, createdBy)
	if err != nil {
		return nil, err
	}
	// The uniqueness scan above ran while the old code was still active, so
	// the new code is guaranteed to differ from it.

	if err := s.repo.Rotate(ctx, oldCredentialID, cred); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("credential", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to regenerate credential: %w", err))
	}

	s.decorate(cred)
	s.metrics.CredentialsRegenerated.Inc()
	s.auditor.Log(ctx, &createdBy, cred.IncidentID, "regenerate", "credential", cred.ID.String(), &audit.LogOptions{
		Changes: map[string]string{"old_credential_id": oldCredentialID.String()},
	})
	s.publish(ctx, model.EventCredentialRegenerated, cred)

	return cred, nil
}

// Resolve matches only active credentials whose validity window is still
// open. Never-issued, deactivated and expired codes are indistinguishable to
// the caller.
func (s *Service) Resolve(ctx context.Context, accessCode string) (*model.AccessCredential, error) {
	cred, err := s.repo.GetActiveByCode(ctx, accessCode, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.CodeResolutions.WithLabelValues("rejected").Inc()
			return nil, apperrors.InvalidOrExpiredCode()
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to resolve access code: %w", err))
	}

	s.decorate(cred)
	s.metrics.CodeResolutions.WithLabelValues("resolved").Inc()
	return cred, nil
}

func (s *Service) AppendPersonnel(ctx context.Context, credentialID uuid.UUID, record *model.PersonRecord) (*model.PersonRecord, error) {
	record.ID = uuid.New()
	record.Estado = model.EstadoActivo
	record.CreatedAt = s.now()
	record.UpdatedAt = record.CreatedAt

	if err := s.repo.AppendPersonnel(ctx, credentialID, record); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityExceeded):
			max := 0
			if cred, getErr := s.repo.Get(ctx, credentialID); getErr == nil && cred.MaxPersonnel != nil {
				max = *cred.MaxPersonnel
			}
			return nil, apperrors.CapacityExceeded(max)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("credential", err)
		default:
			return nil, apperrors.Internal(fmt.Errorf("failed to append personnel: %w", err))
		}
	}

	role := "agent"
	if record.IsLeader {
		role = "leader"
	}
	s.metrics.PersonnelRegistered.WithLabelValues(role).Inc()
	s.auditor.Log(ctx, nil, record.IncidentID, "enroll", "person", record.ID.String(), &audit.LogOptions{Changes: record})
	s.publish(ctx, model.EventPersonnelRegistered, record)

	return record, nil
}

func (s *Service) GetActiveForIncident(ctx context.Context, incidentID string) (*model.AccessCredential, error) {
	cred, err := s.repo.GetActiveByIncident(ctx, incidentID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("credential", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to get active credential: %w", err))
	}
	s.decorate(cred)
	return cred, nil
}

func (s *Service) ListPersonnel(ctx context.Context, credentialID uuid.UUID) ([]*model.PersonRecord, error) {
	return s.repo.ListPersonnel(ctx, credentialID)
}

// newCredential builds a credential with a freshly generated access code,
// collision-checked against every currently active code.
func (s *Service) newCredential(ctx context.Context, incidentID string, cfg model.CredentialConfig, createdBy uuid.UUID) (*model.AccessCredential, error) {
	now := s.now()

	var code string
	for attempt := 0; ; attempt++ {
		if attempt == maxCodeAttempts {
			return nil, &apperrors.AppError{
				Code:    apperrors.ErrCodeGenerationExhausted,
				Message: fmt.Sprintf("could not generate a unique access code in %d attempts", maxCodeAttempts),
			}
		}

		candidate, err := generateAccessCode()
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		inUse, err := s.repo.CodeActive(ctx, candidate, now)
		if err != nil {
			return nil, apperrors.Internal(fmt.Errorf("failed to check code uniqueness: %w", err))
		}
		if !inUse {
			code = candidate
			break
		}
		s.metrics.CodeGenerationRetries.Inc()
	}

	return &model.AccessCredential{
		ID:           uuid.New(),
		IncidentID:   incidentID,
		AccessCode:   code,
		ValidUntil:   now.Add(cfg.Validity(s.defaultValidity)),
		MaxPersonnel: cfg.MaxPersonnel,
		Active:       true,
		CreatedAt:    now,
		CreatedBy:    createdBy,
	}, nil
}

func (s *Service) decorate(cred *model.AccessCredential) {
	cred.QRPayload = s.presenter.Payload(cred.AccessCode)
}

func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	// Outbox failures must not fail the operation that produced the event.
	_ = s.outboxRepo.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   raw,
	})
}
