package enrollment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarops/incident-api/internal/model"
	apperrors "github.com/sarops/incident-api/pkg/errors"
)

func leaderInput() model.PersonInput {
	return model.PersonInput{
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

func agentInput(nombre, apellido string) model.PersonInput {
	return model.PersonInput{
		Nombre:         nombre,
		Apellido:       apellido,
		DNI:            "28987654",
		Telefono:       "+54 11 5555-0202",
		Rol:            string(model.RolCaminante),
		Sexo:           string(model.SexoMasculino),
		Alergias:       "penicilina",
		GrupoSanguineo: string(model.GrupoAPos),
	}
}

func newTestSession() *Session {
	return NewSession("INC-1", uuid.New())
}

func sessionInReview(t *testing.T, agents ...model.PersonInput) *Session {
	t.Helper()
	s := newTestSession()
	require.NoError(t, s.SubmitLeader(leaderInput()))
	for _, a := range agents {
		_, err := s.AddAgent(a)
		require.NoError(t, err)
	}
	require.NoError(t, s.Review())
	return s
}

func TestSessionStartsCollectingLeader(t *testing.T) {
	s := newTestSession()
	assert.Equal(t, PhaseCollectingLeader, s.Phase())
	assert.Nil(t, s.Leader())
	assert.Empty(t, s.Agents())
}

func TestSubmitLeaderInvalidLeavesSessionUntouched(t *testing.T) {
	s := newTestSession()

	input := leaderInput()
	input.Apellido = ""
	err := s.SubmitLeader(input)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))
	assert.Equal(t, PhaseCollectingLeader, s.Phase())
	assert.Nil(t, s.Leader())
}

func TestSubmitLeaderAdvancesToAgentCollection(t *testing.T) {
	s := newTestSession()

	require.NoError(t, s.SubmitLeader(leaderInput()))

	assert.Equal(t, PhaseCollectingAgents, s.Phase())
	leader := s.Leader()
	require.NotNil(t, leader)
	assert.Equal(t, "Ana", leader.Nombre)
}

func TestAddAgentInheritsLeaderInstitucion(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SubmitLeader(leaderInput()))

	// Even an agent arriving with its own institucion gets the leader's.
	input := agentInput("Bruno", "Sosa")
	input.Institucion = "otra"
	_, err := s.AddAgent(input)
	require.NoError(t, err)

	agents := s.Agents()
	require.Len(t, agents, 1)
	assert.Equal(t, "G.E.S - Capital", agents[0].Input.Institucion)
}

func TestAddAgentValidationRejectsIncomplete(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SubmitLeader(leaderInput()))

	input := agentInput("Bruno", "Sosa")
	input.DNI = ""
	_, err := s.AddAgent(input)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))
	assert.Empty(t, s.Agents())
}

func TestDeleteAgentRemovesExactlyThatAgent(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SubmitLeader(leaderInput()))

	idA, err := s.AddAgent(agentInput("Bruno", "Sosa"))
	require.NoError(t, err)
	_, err = s.AddAgent(agentInput("Carla", "Mendez"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteAgent(idA))

	agents := s.Agents()
	require.Len(t, agents, 1)
	assert.Equal(t, "Carla", agents[0].Input.Nombre)

	err = s.DeleteAgent(idA)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestChangeLeaderDiscardsLeaderAndAgents(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SubmitLeader(leaderInput()))
	_, err := s.AddAgent(agentInput("Bruno", "Sosa"))
	require.NoError(t, err)

	require.NoError(t, s.ChangeLeader())

	assert.Equal(t, PhaseCollectingLeader, s.Phase())
	assert.Nil(t, s.Leader())
	assert.Empty(t, s.Agents())
}

func TestEditLeaderKeepsAgentsAndRestampsInstitucion(t *testing.T) {
	s := sessionInReview(t, agentInput("Bruno", "Sosa"))

	current, err := s.EditLeader()
	require.NoError(t, err)
	assert.Equal(t, "Ana", current.Nombre)
	assert.Equal(t, PhaseCollectingLeader, s.Phase())
	assert.Len(t, s.Agents(), 1)

	current.Institucion = "Bomberos Voluntarios"
	require.NoError(t, s.SubmitLeader(current))

	agents := s.Agents()
	require.Len(t, agents, 1)
	assert.Equal(t, "Bomberos Voluntarios", agents[0].Input.Institucion)
}

func TestEditAgentReplacesInPlace(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SubmitLeader(leaderInput()))

	idA, err := s.AddAgent(agentInput("Bruno", "Sosa"))
	require.NoError(t, err)
	_, err = s.AddAgent(agentInput("Carla", "Mendez"))
	require.NoError(t, err)

	loaded, err := s.BeginEditAgent(idA)
	require.NoError(t, err)
	assert.Equal(t, "Bruno", loaded.Nombre)
	assert.Equal(t, idA, s.Editing())

	loaded.Telefono = "+54 11 5555-0303"
	require.NoError(t, s.SaveAgent(loaded))

	agents := s.Agents()
	require.Len(t, agents, 2)
	// List position and temp ID survive the edit.
	assert.Equal(t, idA, agents[0].TempID)
	assert.Equal(t, "+54 11 5555-0303", agents[0].Input.Telefono)
	assert.Empty(t, s.Editing())
}

func TestEditAgentFromReviewReturnsToReview(t *testing.T) {
	s := sessionInReview(t, agentInput("Bruno", "Sosa"))
	id := s.Agents()[0].TempID

	loaded, err := s.BeginEditAgent(id)
	require.NoError(t, err)
	assert.Equal(t, PhaseCollectingAgents, s.Phase())

	loaded.Alergias = "mariscos"
	require.NoError(t, s.SaveAgent(loaded))
	assert.Equal(t, PhaseReviewing, s.Phase())
}

func TestCancelEditDiscardsFormChanges(t *testing.T) {
	s := sessionInReview(t, agentInput("Bruno", "Sosa"))
	id := s.Agents()[0].TempID

	_, err := s.BeginEditAgent(id)
	require.NoError(t, err)

	s.CancelEdit()

	assert.Equal(t, PhaseReviewing, s.Phase())
	assert.Empty(t, s.Editing())
	assert.Equal(t, "Bruno", s.Agents()[0].Input.Nombre)
}

func TestDeleteAgentUnderEditClearsEdit(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SubmitLeader(leaderInput()))
	id, err := s.AddAgent(agentInput("Bruno", "Sosa"))
	require.NoError(t, err)

	_, err = s.BeginEditAgent(id)
	require.NoError(t, err)
	require.NoError(t, s.DeleteAgent(id))

	assert.Empty(t, s.Editing())
	assert.Empty(t, s.Agents())
}

func TestReviewAndBack(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SubmitLeader(leaderInput()))

	require.NoError(t, s.Review())
	assert.Equal(t, PhaseReviewing, s.Phase())

	require.NoError(t, s.Back())
	assert.Equal(t, PhaseCollectingAgents, s.Phase())
}

func TestBeginCommitSnapshotsLeaderFirst(t *testing.T) {
	s := sessionInReview(t, agentInput("Bruno", "Sosa"), agentInput("Carla", "Mendez"))

	records, err := s.BeginCommit()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "Ana", records[0].Nombre)
	assert.Equal(t, "Bruno", records[1].Nombre)
	assert.Equal(t, "Carla", records[2].Nombre)
	assert.Equal(t, PhaseSubmitting, s.Phase())
}

func TestFailCommitReturnsToReviewWithError(t *testing.T) {
	s := sessionInReview(t, agentInput("Bruno", "Sosa"))
	_, err := s.BeginCommit()
	require.NoError(t, err)

	s.FailCommit("agente Bruno Sosa: upstream rejected")

	assert.Equal(t, PhaseReviewing, s.Phase())
	assert.Equal(t, "agente Bruno Sosa: upstream rejected", s.LastError())

	// A fresh commit attempt clears the stale error.
	_, err = s.BeginCommit()
	require.NoError(t, err)
	assert.Empty(t, s.LastError())
}

func TestCompleteCommitIsTerminal(t *testing.T) {
	s := sessionInReview(t)
	_, err := s.BeginCommit()
	require.NoError(t, err)

	s.CompleteCommit()

	assert.Equal(t, PhaseDone, s.Phase())
	assert.Nil(t, s.Leader())
	assert.Empty(t, s.Agents())

	err = s.Back()
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))
}

func TestTransitionsRejectedOutOfPhase(t *testing.T) {
	s := newTestSession()

	_, err := s.AddAgent(agentInput("Bruno", "Sosa"))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))

	assert.True(t, apperrors.Is(s.Review(), apperrors.ErrInvalidTransition))
	assert.True(t, apperrors.Is(s.Back(), apperrors.ErrInvalidTransition))
	assert.True(t, apperrors.Is(s.ChangeLeader(), apperrors.ErrInvalidTransition))

	_, err = s.BeginCommit()
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))

	_, err = s.EditLeader()
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidTransition))

	assert.True(t, apperrors.Is(s.SaveAgent(agentInput("Bruno", "Sosa")), apperrors.ErrInvalidTransition))
}
