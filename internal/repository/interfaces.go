package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sarops/incident-api/internal/model"
)

// Sentinel errors mapped by services onto the user-facing taxonomy.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

type IncidentRepository interface {
	Create(ctx context.Context, incident *model.Incident) error
	Get(ctx context.Context, id string) (*model.Incident, error)
	List(ctx context.Context) ([]*model.Incident, error)
}

// CredentialRepository owns access credentials and their personnel lists.
// IssueExclusive and Rotate run inside a transaction that serializes on the
// incident row, so two concurrent coordinators cannot end up with two
// simultaneously active credentials.
type CredentialRepository interface {
	// IssueExclusive inserts cred, failing with ErrConflict if the incident
	// already has an active credential with valid_until in the future.
	IssueExclusive(ctx context.Context, cred *model.AccessCredential) error

	// Rotate deactivates the credential with oldID and inserts newCred
	// atomically. ErrNotFound if oldID is not an active credential.
	Rotate(ctx context.Context, oldID uuid.UUID, newCred *model.AccessCredential) error

	Get(ctx context.Context, id uuid.UUID) (*model.AccessCredential, error)

	// GetActiveByCode matches only active credentials whose valid_until is
	// strictly after now. Expired and deactivated codes are ErrNotFound.
	GetActiveByCode(ctx context.Context, code string, now time.Time) (*model.AccessCredential, error)

	GetActiveByIncident(ctx context.Context, incidentID string, now time.Time) (*model.AccessCredential, error)

	// CodeActive reports whether code belongs to any currently active,
	// unexpired credential system-wide.
	CodeActive(ctx context.Context, code string, now time.Time) (bool, error)

	// AppendPersonnel inserts record under credentialID, enforcing the
	// credential's max_personnel bound under a row lock.
	AppendPersonnel(ctx context.Context, credentialID uuid.UUID, record *model.PersonRecord) error

	ListPersonnel(ctx context.Context, credentialID uuid.UUID) ([]*model.PersonRecord, error)
}

// PersonnelRepository is the incident-wide roster view: the union of all
// credential enrollments plus directly assigned personnel.
type PersonnelRepository interface {
	Create(ctx context.Context, record *model.PersonRecord) error
	ListByIncident(ctx context.Context, incidentID string) ([]*model.PersonRecord, error)
	CountByIncident(ctx context.Context, incidentID string) (int, error)
	UpdateEstado(ctx context.Context, id uuid.UUID, estado model.Estado) error
}

type OperatorRepository interface {
	Create(ctx context.Context, operator *model.Operator) error
	Get(ctx context.Context, id uuid.UUID) (*model.Operator, error)
	GetByEmail(ctx context.Context, email string) (*model.Operator, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	// ClaimPending durably marks a batch of pending events as claimed and
	// returns them; a claimed event is not handed to another caller until
	// its claim goes stale or reaches a terminal status.
	ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	ListByIncident(ctx context.Context, incidentID string, p model.Pagination) ([]*model.AuditLog, error)
}
