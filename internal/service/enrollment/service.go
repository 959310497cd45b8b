package enrollment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sarops/incident-api/internal/model"
	apperrors "github.com/sarops/incident-api/pkg/errors"
	"github.com/sarops/incident-api/pkg/logger"
	"github.com/sarops/incident-api/pkg/metrics"
)

// CommitResult reports what a commit attempt submitted. On failure,
// FailedRecord names the record the sequence halted at; everything in
// Submitted stayed committed upstream.
type CommitResult struct {
	Submitted    []*model.PersonRecord `json:"submitted"`
	FailedRecord string                `json:"failed_record,omitempty"`
	Error        string                `json:"error,omitempty"`
}

type Service struct {
	manager   *Manager
	submitter Submitter
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// Notifier is told about completed enrollment batches. A nil notifier is
// valid.
type Notifier interface {
	EnrollmentCommitted(ctx context.Context, incidentID string, submitted []*model.PersonRecord)
}

func NewService(manager *Manager, submitter Submitter, notifier Notifier, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		manager:   manager,
		submitter: submitter,
		notifier:  notifier,
		metrics:   m,
		logger:    log,
	}
}

func (s *Service) Manager() *Manager {
	return s.manager
}

// Commit submits the leader first, then each agent in list order, one at a
// time, so any failure is attributable to a specific record. On failure the
// sequence halts immediately: prior submissions are neither retried nor
// rolled back, and the session returns to review with the error visible.
// Retrying a failed commit resubmits from the leader again, duplicating the
// records that already went through; deduplication is the backend's concern,
// not this service's.
func (s *Service) Commit(ctx context.Context, sessionID uuid.UUID) (*CommitResult, error) {
	session, err := s.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}

	inputs, err := session.BeginCommit()
	if err != nil {
		return nil, err
	}

	result := &CommitResult{}
	for i, input := range inputs {
		who := s.describe(i, &input)

		// Cancellation is honored between records only; a request already
		// sent must run to its outcome.
		if err := ctx.Err(); err != nil {
			s.fail(session, result, who, err)
			return result, apperrors.SubmissionFailed(who, err)
		}

		record := input.ToRecord()
		record.IncidentID = session.IncidentID
		record.CredentialID = &session.CredentialID
		record.IsLeader = i == 0

		saved, err := s.submitter.SubmitPerson(ctx, session.IncidentID, record)
		if err != nil {
			s.fail(session, result, who, err)
			return result, apperrors.SubmissionFailed(who, err)
		}
		result.Submitted = append(result.Submitted, saved)
	}

	session.CompleteCommit()
	s.manager.Destroy(session.ID)

	if s.notifier != nil {
		s.notifier.EnrollmentCommitted(ctx, session.IncidentID, result.Submitted)
	}
	s.logger.Info("enrollment committed",
		"incident_id", session.IncidentID,
		"records", len(result.Submitted))

	return result, nil
}

// Abandon destroys a session without committing.
func (s *Service) Abandon(sessionID uuid.UUID) {
	s.manager.Destroy(sessionID)
}

func (s *Service) fail(session *Session, result *CommitResult, who string, err error) {
	s.metrics.CommitFailures.Inc()
	result.FailedRecord = who
	result.Error = err.Error()
	session.FailCommit(fmt.Sprintf("%s: %v", who, err))
	s.logger.Error(err, "enrollment commit halted",
		"incident_id", session.IncidentID,
		"failed_record", who,
		"submitted", len(result.Submitted))
}

func (s *Service) describe(index int, input *model.PersonInput) string {
	role := "agente"
	if index == 0 {
		role = "responsable"
	}
	return fmt.Sprintf("%s %s %s", role, input.Nombre, input.Apellido)
}
