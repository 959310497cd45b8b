package enrollment

import (
	"context"
	"fmt"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/service/credential"
	apperrors "github.com/sarops/incident-api/pkg/errors"
)

// ErrorKind classifies a submission failure so callers can tell a retryable
// outage from a rejection that will fail again.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindRejected
	KindCapacity
)

type SubmitError struct {
	Kind ErrorKind
	Err  error
}

func (e *SubmitError) Error() string {
	return e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Submitter is the persistence collaborator: it accepts one completed person
// record at a time.
type Submitter interface {
	SubmitPerson(ctx context.Context, incidentID string, record *model.PersonRecord) (*model.PersonRecord, error)
}

// storeSubmitter submits through the credential store, which appends to the
// credential's personnel list.
type storeSubmitter struct {
	store credential.Store
}

func NewStoreSubmitter(store credential.Store) Submitter {
	return &storeSubmitter{store: store}
}

func (s *storeSubmitter) SubmitPerson(ctx context.Context, incidentID string, record *model.PersonRecord) (*model.PersonRecord, error) {
	if record.CredentialID == nil {
		return nil, &SubmitError{Kind: KindRejected, Err: fmt.Errorf("record has no credential")}
	}

	saved, err := s.store.AppendPersonnel(ctx, *record.CredentialID, record)
	if err != nil {
		kind := KindTransient
		switch {
		case apperrors.Is(err, apperrors.ErrCapacityExceeded):
			kind = KindCapacity
		case apperrors.Is(err, apperrors.ErrValidationFailed), apperrors.Is(err, apperrors.ErrNotFound):
			kind = KindRejected
		}
		return nil, &SubmitError{Kind: kind, Err: err}
	}
	return saved, nil
}
