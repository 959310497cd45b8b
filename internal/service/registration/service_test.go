package registration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/service/enrollment"
	apperrors "github.com/sarops/incident-api/pkg/errors"
	"github.com/sarops/incident-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("registration_test", "svc")

// fakeStore resolves exactly one known code and records what it was asked.
type fakeStore struct {
	credential *model.AccessCredential
	resolved   []string
}

func (f *fakeStore) Resolve(ctx context.Context, accessCode string) (*model.AccessCredential, error) {
	f.resolved = append(f.resolved, accessCode)
	if f.credential != nil && f.credential.AccessCode == accessCode {
		copied := *f.credential
		return &copied, nil
	}
	return nil, apperrors.InvalidOrExpiredCode()
}

func (f *fakeStore) Issue(ctx context.Context, incidentID string, cfg model.CredentialConfig, createdBy uuid.UUID) (*model.AccessCredential, error) {
	return nil, nil
}

func (f *fakeStore) Regenerate(ctx context.Context, oldCredentialID uuid.UUID, cfg model.CredentialConfig, createdBy uuid.UUID) (*model.AccessCredential, error) {
	return nil, nil
}

func (f *fakeStore) AppendPersonnel(ctx context.Context, credentialID uuid.UUID, record *model.PersonRecord) (*model.PersonRecord, error) {
	return record, nil
}

func (f *fakeStore) GetActiveForIncident(ctx context.Context, incidentID string) (*model.AccessCredential, error) {
	return nil, nil
}

func (f *fakeStore) ListPersonnel(ctx context.Context, credentialID uuid.UUID) ([]*model.PersonRecord, error) {
	return nil, nil
}

type fakeIncidentRepo struct {
	incidents map[string]*model.Incident
	gets      int
}

func (f *fakeIncidentRepo) Create(ctx context.Context, incident *model.Incident) error { return nil }

func (f *fakeIncidentRepo) Get(ctx context.Context, id string) (*model.Incident, error) {
	f.gets++
	incident, ok := f.incidents[id]
	if !ok {
		return nil, apperrors.NotFound("incident", nil)
	}
	return incident, nil
}

func (f *fakeIncidentRepo) List(ctx context.Context) ([]*model.Incident, error) { return nil, nil }

func newGateway(store *fakeStore, incidents *fakeIncidentRepo) *Service {
	manager := enrollment.NewManager(time.Hour, time.Hour, testMetrics)
	return NewService(store, incidents, manager)
}

func knownStore() (*fakeStore, *fakeIncidentRepo) {
	store := &fakeStore{
		credential: &model.AccessCredential{
			ID:         uuid.New(),
			IncidentID: "INC-1",
			AccessCode: "AB12CD34",
			ValidUntil: time.Now().Add(time.Hour),
			Active:     true,
		},
	}
	incidents := &fakeIncidentRepo{incidents: map[string]*model.Incident{
		"INC-1": {ID: "INC-1", Title: "Busqueda en zona norte", Status: model.IncidentStatusActive},
	}}
	return store, incidents
}

func TestResolveAccessNormalizesCode(t *testing.T) {
	store, incidents := knownStore()
	svc := newGateway(store, incidents)

	access, err := svc.ResolveAccess(context.Background(), "  ab12cd34 ")
	require.NoError(t, err)

	assert.Equal(t, "INC-1", access.Incident.ID)
	assert.Equal(t, "Busqueda en zona norte", access.Incident.Title)
	// The store only ever sees the canonical form.
	assert.Equal(t, []string{"AB12CD34"}, store.resolved)
}

func TestResolveAccessMalformedCodeNeverHitsStore(t *testing.T) {
	store, incidents := knownStore()
	svc := newGateway(store, incidents)

	for _, code := range []string{"", "abc", "toolongcode99", "AB12-D34", "ÑÑ12CD34"} {
		_, err := svc.ResolveAccess(context.Background(), code)
		require.Error(t, err, "code %q", code)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidOrExpiredCode))
	}
	assert.Empty(t, store.resolved)
}

func TestResolveAccessUniformErrorMessage(t *testing.T) {
	store, incidents := knownStore()
	svc := newGateway(store, incidents)

	// A well-formed but unknown code and a malformed one read identically.
	_, unknownErr := svc.ResolveAccess(context.Background(), "ZZZZ9999")
	_, malformedErr := svc.ResolveAccess(context.Background(), "!!")

	require.Error(t, unknownErr)
	require.Error(t, malformedErr)
	assert.Equal(t, unknownErr.Error(), malformedErr.Error())
}

func TestResolveAccessOrphanedCredentialReadsAsDeadCode(t *testing.T) {
	store, _ := knownStore()
	svc := newGateway(store, &fakeIncidentRepo{incidents: map[string]*model.Incident{}})

	_, err := svc.ResolveAccess(context.Background(), "AB12CD34")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidOrExpiredCode))
}

func TestResolveAccessSeesRegenerationImmediately(t *testing.T) {
	store, incidents := knownStore()
	svc := newGateway(store, incidents)

	_, err := svc.ResolveAccess(context.Background(), "AB12CD34")
	require.NoError(t, err)

	// Regeneration deactivates the old code; the next scan must already be
	// rejected even though the same code resolved moments ago.
	store.credential = nil

	_, err = svc.ResolveAccess(context.Background(), "AB12CD34")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidOrExpiredCode))
	assert.Equal(t, []string{"AB12CD34", "AB12CD34"}, store.resolved)
}

func TestResolveAccessRejectsCredentialPastValidity(t *testing.T) {
	store, incidents := knownStore()
	svc := newGateway(store, incidents)
	store.credential.ValidUntil = time.Now().Add(-time.Minute)

	// Even if the store hands the credential back, the gateway checks the
	// validity window itself.
	_, err := svc.ResolveAccess(context.Background(), "AB12CD34")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidOrExpiredCode))
}

func TestResolveAccessCachesIncidentLookupOnly(t *testing.T) {
	store, incidents := knownStore()
	svc := newGateway(store, incidents)

	for i := 0; i < 3; i++ {
		_, err := svc.ResolveAccess(context.Background(), "AB12CD34")
		require.NoError(t, err)
	}
	// Every scan re-resolves the code; only the incident record is cached.
	assert.Len(t, store.resolved, 3)
	assert.Equal(t, 1, incidents.gets)
}

func TestOpenSessionStartsCollectingLeader(t *testing.T) {
	store, incidents := knownStore()
	svc := newGateway(store, incidents)

	session, access, err := svc.OpenSession(context.Background(), "ab12cd34")
	require.NoError(t, err)

	assert.Equal(t, "INC-1", session.IncidentID)
	assert.Equal(t, store.credential.ID, session.CredentialID)
	assert.Equal(t, enrollment.PhaseCollectingLeader, session.Phase())
	assert.Equal(t, "INC-1", access.Incident.ID)
}

func TestOpenSessionRejectsDeadCode(t *testing.T) {
	store, incidents := knownStore()
	svc := newGateway(store, incidents)

	_, _, err := svc.OpenSession(context.Background(), "ZZZZ9999")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidOrExpiredCode))
}
