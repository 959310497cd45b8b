package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
)

type incidentRepository struct {
	BaseRepository
}

func NewIncidentRepository(base BaseRepository) repository.IncidentRepository {
	return &incidentRepository{base}
}

func (r *incidentRepository) Create(ctx context.Context, incident *model.Incident) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO incidents (id, title, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		incident.ID, incident.Title, incident.Description, incident.Status,
		incident.CreatedAt, incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

func (r *incidentRepository) Get(ctx context.Context, id string) (*model.Incident, error) {
	var incident model.Incident
	err := r.db.GetContext(ctx, &incident,
		`SELECT * FROM incidents WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	return &incident, nil
}

func (r *incidentRepository) List(ctx context.Context) ([]*model.Incident, error) {
	var incidents []*model.Incident
	err := r.db.SelectContext(ctx, &incidents,
		`SELECT * FROM incidents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	return incidents, nil
}
