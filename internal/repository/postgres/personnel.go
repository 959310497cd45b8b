package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
)

type personnelRepository struct {
	BaseRepository
}

func NewPersonnelRepository(base BaseRepository) repository.PersonnelRepository {
	return &personnelRepository{base}
}

func (r *personnelRepository) Create(ctx context.Context, record *model.PersonRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO personnel (
			id, incident_id, credential_id, nombre, apellido, dni, telefono,
			institucion, rol, sexo, alergias, grupo_sanguineo, estado,
			is_leader, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		record.ID, record.IncidentID, record.CredentialID, record.Nombre,
		record.Apellido, record.DNI, record.Telefono, record.Institucion,
		record.Rol, record.Sexo, record.Alergias, record.GrupoSanguineo,
		record.Estado, record.IsLeader, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create person record: %w", err)
	}
	return nil
}

// ListByIncident returns the incident-wide roster: personnel enrolled through
// any credential, current or rotated out, plus directly assigned records.
func (r *personnelRepository) ListByIncident(ctx context.Context, incidentID string) ([]*model.PersonRecord, error) {
	var records []*model.PersonRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM personnel
		WHERE incident_id = $1
		ORDER BY created_at ASC`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incident personnel: %w", err)
	}
	return records, nil
}

func (r *personnelRepository) CountByIncident(ctx context.Context, incidentID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM personnel WHERE incident_id = $1`, incidentID)
	if err != nil {
		return 0, fmt.Errorf("failed to count incident personnel: %w", err)
	}
	return count, nil
}

func (r *personnelRepository) UpdateEstado(ctx context.Context, id uuid.UUID, estado model.Estado) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE personnel SET estado = $1, updated_at = NOW() WHERE id = $2`,
		estado, id)
	if err != nil {
		return fmt.Errorf("failed to update estado: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
