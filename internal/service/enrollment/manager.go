package enrollment

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	apperrors "github.com/sarops/incident-api/pkg/errors"
	"github.com/sarops/incident-api/pkg/metrics"
)

// Manager holds the live enrollment sessions. Sessions are transient and
// never persisted; abandoned ones are evicted after the TTL.
type Manager struct {
	sessions *gocache.Cache
	metrics  *metrics.Metrics
}

func NewManager(ttl, cleanupInterval time.Duration, m *metrics.Metrics) *Manager {
	c := gocache.New(ttl, cleanupInterval)
	mgr := &Manager{sessions: c, metrics: m}
	c.OnEvicted(func(string, interface{}) {
		m.EnrollmentSessionsOpened.Dec()
	})
	return mgr
}

func (m *Manager) Create(incidentID string, credentialID uuid.UUID) *Session {
	session := NewSession(incidentID, credentialID)
	m.sessions.Set(session.ID.String(), session, gocache.DefaultExpiration)
	m.metrics.EnrollmentSessionsOpened.Inc()
	return session
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	v, ok := m.sessions.Get(id.String())
	if !ok {
		return nil, apperrors.NotFound("enrollment session", nil)
	}
	return v.(*Session), nil
}

// Destroy removes the session; used on successful commit and on explicit
// abandonment.
func (m *Manager) Destroy(id uuid.UUID) {
	m.sessions.Delete(id.String())
}
