package registration

import (
	"context"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/repository"
	"github.com/sarops/incident-api/internal/service/credential"
	"github.com/sarops/incident-api/internal/service/enrollment"
	apperrors "github.com/sarops/incident-api/pkg/errors"
)

// Access is a resolved entry point: the credential the code belongs to and
// its incident, so the enrolling user sees what they are joining before
// handing over personal data. It is a trust signal, not an authorization
// boundary.
type Access struct {
	Incident   *model.Incident         `json:"incident"`
	Credential *model.AccessCredential `json:"credential"`
}

// codePattern is the shape of every code this service has ever issued.
// Anything else is rejected before touching storage.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{6,8}$`)

type Service struct {
	credentials  credential.Store
	incidents    repository.IncidentRepository
	sessions     *enrollment.Manager
	incidentInfo *gocache.Cache
}

func NewService(credentials credential.Store, incidents repository.IncidentRepository, sessions *enrollment.Manager) *Service {
	return &Service{
		credentials: credentials,
		incidents:   incidents,
		sessions:    sessions,
		// Incident metadata only. The code itself is re-resolved against the
		// store on every scan so a regenerated or expired code dies
		// immediately.
		incidentInfo: gocache.New(30*time.Second, time.Minute),
	}
}

// ResolveAccess maps an externally presented access code to its incident.
// The error is the same for unknown, deactivated and expired codes.
func (s *Service) ResolveAccess(ctx context.Context, code string) (*Access, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(normalized) {
		return nil, apperrors.InvalidOrExpiredCode()
	}

	cred, err := s.credentials.Resolve(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if cred.Expired(time.Now()) {
		return nil, apperrors.InvalidOrExpiredCode()
	}

	incident, err := s.incident(ctx, cred.IncidentID)
	if err != nil {
		// The credential outlived its incident record; treat the code as
		// dead rather than leaking the inconsistency.
		return nil, apperrors.InvalidOrExpiredCode()
	}

	return &Access{Incident: incident, Credential: cred}, nil
}

func (s *Service) incident(ctx context.Context, id string) (*model.Incident, error) {
	if v, ok := s.incidentInfo.Get(id); ok {
		return v.(*model.Incident), nil
	}
	incident, err := s.incidents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.incidentInfo.Set(id, incident, gocache.DefaultExpiration)
	return incident, nil
}

// OpenSession resolves the code and opens a fresh enrollment session under
// the resolved credential.
func (s *Service) OpenSession(ctx context.Context, code string) (*enrollment.Session, *Access, error) {
	access, err := s.ResolveAccess(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	session := s.sessions.Create(access.Incident.ID, access.Credential.ID)
	return session, access, nil
}
