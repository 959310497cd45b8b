package postgres

import (
	"context"
	"fmt"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, actor_id, incident_id, action, entity_type, entity_id,
			changes, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		log.ID, log.ActorID, log.IncidentID, log.Action, log.EntityType,
		log.EntityID, log.Changes, log.IPAddress, log.UserAgent, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) ListByIncident(ctx context.Context, incidentID string, p model.Pagination) ([]*model.AuditLog, error) {
	if p.PageSize <= 0 {
		p.PageSize = 50
	}
	if p.Page <= 0 {
		p.Page = 1
	}

	var logs []*model.AuditLog
	err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM audit_logs
		WHERE incident_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		incidentID, p.PageSize, (p.Page-1)*p.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}
