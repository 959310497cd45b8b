package roster

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
	"github.com/sarops/incident-api/internal/service/audit"
	apperrors "github.com/sarops/incident-api/pkg/errors"
	"github.com/sarops/incident-api/pkg/logger"
)

type fakePersonnelRepo struct {
	records map[uuid.UUID]*model.PersonRecord
	order   []uuid.UUID
}

func newFakePersonnelRepo() *fakePersonnelRepo {
	return &fakePersonnelRepo{records: make(map[uuid.UUID]*model.PersonRecord)}
}

func (r *fakePersonnelRepo) Create(ctx context.Context, record *model.PersonRecord) error {
	copied := *record
	r.records[record.ID] = &copied
	r.order = append(r.order, record.ID)
	return nil
}

func (r *fakePersonnelRepo) ListByIncident(ctx context.Context, incidentID string) ([]*model.PersonRecord, error) {
	var out []*model.PersonRecord
	for _, id := range r.order {
		if rec := r.records[id]; rec.IncidentID == incidentID {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePersonnelRepo) CountByIncident(ctx context.Context, incidentID string) (int, error) {
	list, _ := r.ListByIncident(ctx, incidentID)
	return len(list), nil
}

func (r *fakePersonnelRepo) UpdateEstado(ctx context.Context, id uuid.UUID, estado model.Estado) error {
	rec, ok := r.records[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Estado = estado
	return nil
}

type fakeAuditRepo struct{}

func (fakeAuditRepo) Create(ctx context.Context, log *model.AuditLog) error { return nil }
func (fakeAuditRepo) ListByIncident(ctx context.Context, incidentID string, p model.Pagination) ([]*model.AuditLog, error) {
	return nil, nil
}

func newTestService() (*Service, *fakePersonnelRepo) {
	repo := newFakePersonnelRepo()
	return NewService(repo, audit.NewService(fakeAuditRepo{}, logger.NewLogger(nil))), repo
}

func validInput() *model.PersonInput {
	return &model.PersonInput{
		Nombre:         "Ana",
		Apellido:       "Diaz",
		DNI:            "30123456",
		Telefono:       "+54 11 5555-0101",
		Institucion:    "G.E.S - Capital",
		Rol:            string(model.RolRescatista),
		Sexo:           string(model.SexoFemenino),
		Alergias:       "ninguna",
		GrupoSanguineo: string(model.GrupoOPos),
	}
}

func TestAssignDirect(t *testing.T) {
	svc, repo := newTestService()

	record, err := svc.AssignDirect(context.Background(), "INC-1", uuid.New(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "INC-1", record.IncidentID)
	assert.Equal(t, model.EstadoActivo, record.Estado)
	assert.Nil(t, record.CredentialID)

	count, err := svc.Count(context.Background(), "INC-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, repo.order, 1)
}

func TestAssignDirectValidates(t *testing.T) {
	svc, repo := newTestService()

	input := validInput()
	input.Institucion = ""
	_, err := svc.AssignDirect(context.Background(), "INC-1", uuid.New(), input)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))
	assert.Empty(t, repo.order)
}

func TestSetEstado(t *testing.T) {
	svc, _ := newTestService()

	record, err := svc.AssignDirect(context.Background(), "INC-1", uuid.New(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.SetEstado(context.Background(), record.ID, model.EstadoInactivo))

	list, err := svc.List(context.Background(), "INC-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.EstadoInactivo, list[0].Estado)

	err = svc.SetEstado(context.Background(), record.ID, model.Estado("de baja"))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	err = svc.SetEstado(context.Background(), uuid.New(), model.EstadoActivo)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestExportXLSX(t *testing.T) {
	svc, _ := newTestService()

	leaderIn := validInput()
	leader, err := svc.AssignDirect(context.Background(), "INC-1", uuid.New(), leaderIn)
	require.NoError(t, err)
	require.NoError(t, svc.SetEstado(context.Background(), leader.ID, model.EstadoActivo))

	agent := validInput()
	agent.Nombre = "Bruno"
	agent.Apellido = "Sosa"
	_, err = svc.AssignDirect(context.Background(), "INC-1", uuid.New(), agent)
	require.NoError(t, err)

	data, err := svc.ExportXLSX(context.Background(), "INC-1")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Personal")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Nombre", rows[0][0])
	assert.Equal(t, "Responsable", rows[0][10])
	assert.Equal(t, "Ana", rows[1][0])
	assert.Equal(t, "Bruno", rows[2][0])
	assert.Equal(t, "G.E.S - Capital", rows[1][4])
}
