package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarops/incident-api/internal/model"
	"github.com/sarops/incident-api/internal/service/enrollment"
	registrationService "github.com/sarops/incident-api/internal/service/registration"
	apperrors "github.com/sarops/incident-api/pkg/errors"
	"github.com/sarops/incident-api/pkg/logger"
	"github.com/sarops/incident-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("registration_handler_test", "api")

const testAccessCode = "AB12CD34"

type fakeStore struct {
	credential *model.AccessCredential
	submitted  []*model.PersonRecord
	failOn     string
}

func (f *fakeStore) Resolve(ctx context.Context, accessCode string) (*model.AccessCredential, error) {
	if accessCode == f.credential.AccessCode {
		copied := *f.credential
		return &copied, nil
	}
	return nil, apperrors.InvalidOrExpiredCode()
}

func (f *fakeStore) AppendPersonnel(ctx context.Context, credentialID uuid.UUID, record *model.PersonRecord) (*model.PersonRecord, error) {
	if f.failOn != "" && record.Nombre == f.failOn {
		return nil, apperrors.Internal(fmt.Errorf("upstream unavailable"))
	}
	saved := *record
	saved.ID = uuid.New()
	f.submitted = append(f.submitted, &saved)
	return &saved, nil
}

func (f *fakeStore) Issue(ctx context.Context, incidentID string, cfg model.CredentialConfig, createdBy uuid.UUID) (*model.AccessCredential, error) {
	return nil, nil
}

func (f *fakeStore) Regenerate(ctx context.Context, oldCredentialID uuid.UUID, cfg model.CredentialConfig, createdBy uuid.UUID) (*model.AccessCredential, error) {
	return nil, nil
}

func (f *fakeStore) GetActiveForIncident(ctx context.Context, incidentID string) (*model.AccessCredential, error) {
	return nil, nil
}

func (f *fakeStore) ListPersonnel(ctx context.Context, credentialID uuid.UUID) ([]*model.PersonRecord, error) {
	return nil, nil
}

type fakeIncidentRepo struct{}

func (fakeIncidentRepo) Create(ctx context.Context, incident *model.Incident) error { return nil }
func (fakeIncidentRepo) Get(ctx context.Context, id string) (*model.Incident, error) {
	if id != "INC-1" {
		return nil, apperrors.NotFound("incident", nil)
	}
	return &model.Incident{ID: "INC-1", Title: "Busqueda en zona norte"}, nil
}
func (fakeIncidentRepo) List(ctx context.Context) ([]*model.Incident, error) { return nil, nil }

func newTestRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	manager := enrollment.NewManager(time.Hour, time.Hour, testMetrics)
	enrollmentSvc := enrollment.NewService(
		manager,
		enrollment.NewStoreSubmitter(store),
		nil,
		testMetrics,
		logger.NewLogger(nil),
	)
	gateway := registrationService.NewService(store, fakeIncidentRepo{}, manager)

	engine := gin.New()
	NewHandler(gateway, enrollmentSvc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func newTestStore() *fakeStore {
	return &fakeStore{
		credential: &model.AccessCredential{
			ID:         uuid.New(),
			IncidentID: "INC-1",
			AccessCode: testAccessCode,
			ValidUntil: time.Now().Add(time.Hour),
			Active:     true,
		},
	}
}

type envelope struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	}
	return w, env
}

func leaderPayload() map[string]interface{} {
	return map[string]interface{}{
		"nombre":          "Ana",
		"apellido":        "Diaz",
		"dni":             "30123456",
		"telefono":        "+54 11 5555-0101",
		"institucion":     "G.E.S - Capital",
		"rol":             "Rescatista",
		"sexo":            "femenino",
		"alergias":        "ninguna",
		"grupo_sanguineo": "O+",
	}
}

func agentPayload(nombre string) map[string]interface{} {
	return map[string]interface{}{
		"nombre":          nombre,
		"apellido":        "Sosa",
		"dni":             "28987654",
		"telefono":        "+54 11 5555-0202",
		"rol":             "Caminante",
		"sexo":            "masculino",
		"alergias":        "penicilina",
		"grupo_sanguineo": "A+",
	}
}

func TestResolveUnknownCodeIs404WithUniformMessage(t *testing.T) {
	engine := newTestRouter(newTestStore())

	// A well-formed unknown code and garbage both read as not found, with
	// the exact same message.
	for _, code := range []string{"ZZZZ9999", "nonsense!"} {
		w, env := doJSON(t, engine, "GET", "/api/v1/registro-personal/"+code, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "error", env.Status)
		assert.Equal(t, "invalid or expired access code", env.Message)
	}
}

func TestResolveKnownCodeShowsIncident(t *testing.T) {
	engine := newTestRouter(newTestStore())

	w, env := doJSON(t, engine, "GET", "/api/v1/registro-personal/"+testAccessCode, nil)
	require.Equal(t, http.StatusOK, w.Code)

	incident := env.Data["incident"].(map[string]interface{})
	assert.Equal(t, "INC-1", incident["id"])
	assert.Equal(t, "Busqueda en zona norte", incident["title"])
}

func TestEnrollmentFlow(t *testing.T) {
	store := newTestStore()
	engine := newTestRouter(store)

	// Scan the code and open a session.
	w, env := doJSON(t, engine, "POST", "/api/v1/registro-personal/"+testAccessCode+"/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := env.Data["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.Equal(t, "collecting-leader", env.Data["phase"])

	base := "/api/v1/enrollment-sessions/" + sessionID

	// An incomplete leader is rejected and the session does not advance.
	bad := leaderPayload()
	delete(bad, "telefono")
	w, env = doJSON(t, engine, "POST", base+"/leader", bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "el campo telefono es obligatorio", env.Message)

	w, env = doJSON(t, engine, "GET", base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "collecting-leader", env.Data["phase"])

	// Capture the leader, then an agent that inherits the institucion.
	w, env = doJSON(t, engine, "POST", base+"/leader", leaderPayload())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "collecting-agents", env.Data["phase"])

	w, env = doJSON(t, engine, "POST", base+"/agents", agentPayload("Bruno"))
	require.Equal(t, http.StatusCreated, w.Code)
	agents := env.Data["agents"].([]interface{})
	require.Len(t, agents, 1)
	input := agents[0].(map[string]interface{})["input"].(map[string]interface{})
	assert.Equal(t, "G.E.S - Capital", input["institucion"])

	// Review and commit.
	w, _ = doJSON(t, engine, "POST", base+"/review", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = doJSON(t, engine, "POST", base+"/commit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	submitted := env.Data["submitted"].([]interface{})
	assert.Len(t, submitted, 2)

	// Leader first, then the agent, both under the scanned credential.
	require.Len(t, store.submitted, 2)
	assert.Equal(t, "Ana", store.submitted[0].Nombre)
	assert.True(t, store.submitted[0].IsLeader)
	assert.Equal(t, "Bruno", store.submitted[1].Nombre)
	assert.False(t, store.submitted[1].IsLeader)
	assert.Equal(t, "INC-1", store.submitted[0].IncidentID)

	// The session is gone after a successful commit.
	w, _ = doJSON(t, engine, "GET", base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommitFailureReturnsPartialResult(t *testing.T) {
	store := newTestStore()
	store.failOn = "Bruno"
	engine := newTestRouter(store)

	_, env := doJSON(t, engine, "POST", "/api/v1/registro-personal/"+testAccessCode+"/sessions", nil)
	base := "/api/v1/enrollment-sessions/" + env.Data["session_id"].(string)

	w, _ := doJSON(t, engine, "POST", base+"/leader", leaderPayload())
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, engine, "POST", base+"/agents", agentPayload("Bruno"))
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = doJSON(t, engine, "POST", base+"/review", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = doJSON(t, engine, "POST", base+"/commit", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "agente Bruno Sosa", env.Data["failed_record"])
	assert.Len(t, env.Data["submitted"], 1)

	// The leader stayed committed upstream and the session is back in
	// review with the failure visible.
	require.Len(t, store.submitted, 1)
	assert.Equal(t, "Ana", store.submitted[0].Nombre)

	w, env = doJSON(t, engine, "GET", base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reviewing", env.Data["phase"])
	assert.Contains(t, env.Data["last_error"], "agente Bruno Sosa")
}

func TestAbandonSession(t *testing.T) {
	engine := newTestRouter(newTestStore())

	_, env := doJSON(t, engine, "POST", "/api/v1/registro-personal/"+testAccessCode+"/sessions", nil)
	base := "/api/v1/enrollment-sessions/" + env.Data["session_id"].(string)

	w, _ := doJSON(t, engine, "DELETE", base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = doJSON(t, engine, "GET", base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
