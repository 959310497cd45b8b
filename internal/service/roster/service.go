package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
	"github.com/sarops/incident-api/internal/service/audit"
	apperrors "github.com/sarops/incident-api/pkg/errors"
)

// Service is the post-enrollment roster view of an incident: the union of
// personnel enrolled through every credential the incident has had, plus
// directly assigned records.
type Service struct {
	repo    repository.PersonnelRepository
	auditor *audit.Service
}

func NewService(repo repository.PersonnelRepository, auditor *audit.Service) *Service {
	return &Service{repo: repo, auditor: auditor}
}

func (s *Service) List(ctx context.Context, incidentID string) ([]*model.PersonRecord, error) {
	return s.repo.ListByIncident(ctx, incidentID)
}

func (s *Service) Count(ctx context.Context, incidentID string) (int, error) {
	return s.repo.CountByIncident(ctx, incidentID)
}

// AssignDirect registers a person outside any enrollment session, for
// coordinators adding known personnel by hand.
func (s *Service) AssignDirect(ctx context.Context, incidentID string, actorID uuid.UUID, input *model.PersonInput) (*model.PersonRecord, error) {
	if err := input.Validate(true); err != nil {
		return nil, apperrors.ValidationFailed(err.Error())
	}

	record := input.ToRecord()
	record.ID = uuid.New()
	record.IncidentID = incidentID
	record.Estado = model.EstadoActivo
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.auditor.Log(ctx, &actorID, incidentID, "assign", "person", record.ID.String(), &audit.LogOptions{Changes: record})
	return record, nil
}

func (s *Service) SetEstado(ctx context.Context, id uuid.UUID, estado model.Estado) error {
	if estado != model.EstadoActivo && estado != model.EstadoInactivo {
		return apperrors.BadRequest(fmt.Sprintf("invalid estado %q", estado), nil)
	}
	if err := s.repo.UpdateEstado(ctx, id, estado); err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("person", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

var exportHeader = []string{
	"Nombre", "Apellido", "DNI", "Telefono", "Institucion",
	"Rol", "Sexo", "Alergias", "Grupo Sanguineo", "Estado", "Responsable",
}

// ExportXLSX renders the incident roster as a spreadsheet.
func (s *Service) ExportXLSX(ctx context.Context, incidentID string) ([]byte, error) {
	records, err := s.repo.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Personal"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, title)
	}

	for row, r := range records {
		leader := ""
		if r.IsLeader {
			leader = "Si"
		}
		values := []interface{}{
			r.Nombre, r.Apellido, r.DNI, r.Telefono, r.Institucion,
			string(r.Rol), string(r.Sexo), r.Alergias, string(r.GrupoSanguineo),
			string(r.Estado), leader,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to write spreadsheet: %w", err))
	}
	return buf.Bytes(), nil
}
