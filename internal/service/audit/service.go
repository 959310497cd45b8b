package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
	"github.com/sarops/incident-api/pkg/logger"
)

type Service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

type LogOptions struct {
	Changes   interface{}
	IPAddress string
	UserAgent string
}

// Log records an audit entry. Failures are logged and swallowed: auditing
// never blocks the operation being audited.
func (s *Service) Log(ctx context.Context, actorID *uuid.UUID, incidentID, action, entityType, entityID string, opts *LogOptions) {
	entry := &model.AuditLog{
		ID:         uuid.New(),
		ActorID:    actorID,
		IncidentID: incidentID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}

	if opts != nil {
		entry.IPAddress = opts.IPAddress
		entry.UserAgent = opts.UserAgent
		if opts.Changes != nil {
			changes, err := json.Marshal(opts.Changes)
			if err != nil {
				s.logger.Error(err, "failed to marshal audit changes",
					"action", action, "entity_type", entityType)
			} else {
				entry.Changes = changes
			}
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(err, "failed to write audit log",
			"action", action, "entity_type", entityType, "entity_id", entityID)
	}
}

func (s *Service) ListByIncident(ctx context.Context, incidentID string, p model.Pagination) ([]*model.AuditLog, error) {
	return s.repo.ListByIncident(ctx, incidentID, p)
}
