package enrollment

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sarops/incident-api/internal/model"
	apperrors "github.com/sarops/incident-api/pkg/errors"
)

// Phase is the explicit state tag of an enrollment session.
type Phase string

const (
	PhaseCollectingLeader Phase = "collecting-leader"
	PhaseCollectingAgents Phase = "collecting-agents"
	PhaseReviewing        Phase = "reviewing"
	PhaseSubmitting       Phase = "submitting"
	PhaseDone             Phase = "done"
)

// TempID locates an agent within its session for edit and delete. It is a
// distinct type from the persisted person ID and is never sent to the
// persistence layer.
type TempID string

// Agent is one subordinate entry pending commit, tagged with its
// session-local identifier.
type Agent struct {
	TempID TempID            `json:"temp_id"`
	Input  model.PersonInput `json:"input"`
}

// Session collects one leader and zero or more agents before committing them.
// It exclusively owns its records until commit hands them to the store.
type Session struct {
	ID           uuid.UUID
	IncidentID   string
	CredentialID uuid.UUID
	CreatedAt    time.Time

	mu                sync.Mutex
	phase             Phase
	leader            *model.PersonInput
	agents            []*Agent
	editing           TempID
	editingFromReview bool
	nextTemp          int
	lastError         string
}

func NewSession(incidentID string, credentialID uuid.UUID) *Session {
	return &Session{
		ID:           uuid.New(),
		IncidentID:   incidentID,
		CredentialID: credentialID,
		CreatedAt:    time.Now(),
		phase:        PhaseCollectingLeader,
	}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Leader returns a copy of the captured leader, or nil before capture.
func (s *Session) Leader() *model.PersonInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leader == nil {
		return nil
	}
	leader := *s.leader
	return &leader
}

// Agents returns the agents in list order. The slice is a copy; the entries
// are copies too.
func (s *Session) Agents() []Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Agent, len(s.agents))
	for i, a := range s.agents {
		out[i] = *a
	}
	return out
}

// Editing returns the temp ID of the agent currently loaded for editing, or
// the empty value.
func (s *Session) Editing() TempID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

// LastError returns the message surfaced by the most recent failed commit.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// SubmitLeader validates and captures the leader. On validation failure the
// session is left untouched: phase stays and leader stays unset.
func (s *Session) SubmitLeader(input model.PersonInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCollectingLeader {
		return apperrors.InvalidTransition(fmt.Sprintf("cannot submit leader in phase %s", s.phase))
	}
	if err := input.Validate(true); err != nil {
		return apperrors.ValidationFailed(err.Error())
	}

	s.leader = &input
	// Agents kept across an EditLeader round trip follow the leader's
	// institucion.
	for _, a := range s.agents {
		a.Input.Institucion = input.Institucion
	}
	s.phase = PhaseCollectingAgents
	return nil
}

// ChangeLeader abandons the captured leader and every agent, returning to
// leader capture.
func (s *Session) ChangeLeader() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCollectingAgents {
		return apperrors.InvalidTransition(fmt.Sprintf("cannot change leader in phase %s", s.phase))
	}

	s.leader = nil
	s.agents = nil
	s.clearEditLocked()
	s.phase = PhaseCollectingLeader
	return nil
}

// EditLeader reopens leader capture from the review table. Agents are kept;
// only ChangeLeader discards them.
func (s *Session) EditLeader() (model.PersonInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseReviewing {
		return model.PersonInput{}, apperrors.InvalidTransition(fmt.Sprintf("cannot edit leader in phase %s", s.phase))
	}

	current := *s.leader
	s.leader = nil
	s.phase = PhaseCollectingLeader
	return current, nil
}

// AddAgent validates and appends an agent. The agent inherits the leader's
// institucion unconditionally.
func (s *Session) AddAgent(input model.PersonInput) (TempID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCollectingAgents {
		return "", apperrors.InvalidTransition(fmt.Sprintf("cannot add agent in phase %s", s.phase))
	}
	if err := input.Validate(false); err != nil {
		return "", apperrors.ValidationFailed(err.Error())
	}

	input.Institucion = s.leader.Institucion
	s.nextTemp++
	agent := &Agent{
		TempID: TempID(fmt.Sprintf("tmp-%d", s.nextTemp)),
		Input:  input,
	}
	s.agents = append(s.agents, agent)
	return agent.TempID, nil
}

// BeginEditAgent loads an agent's fields back for editing and remembers
// where the edit started so SaveAgent can return there.
func (s *Session) BeginEditAgent(id TempID) (model.PersonInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCollectingAgents && s.phase != PhaseReviewing {
		return model.PersonInput{}, apperrors.InvalidTransition(fmt.Sprintf("cannot edit agent in phase %s", s.phase))
	}

	agent := s.findLocked(id)
	if agent == nil {
		return model.PersonInput{}, apperrors.NotFound("agent", nil)
	}

	s.editing = id
	s.editingFromReview = s.phase == PhaseReviewing
	s.phase = PhaseCollectingAgents
	return agent.Input, nil
}

// SaveAgent replaces the agent being edited in place, preserving its list
// position, then returns to reviewing if the edit started there.
func (s *Session) SaveAgent(input model.PersonInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCollectingAgents || s.editing == "" {
		return apperrors.InvalidTransition("no agent edit in progress")
	}
	if err := input.Validate(false); err != nil {
		return apperrors.ValidationFailed(err.Error())
	}

	agent := s.findLocked(s.editing)
	if agent == nil {
		return apperrors.NotFound("agent", nil)
	}

	input.Institucion = s.leader.Institucion
	agent.Input = input
	if s.editingFromReview {
		s.phase = PhaseReviewing
	}
	s.clearEditLocked()
	return nil
}

// CancelEdit discards pending form changes. The stored agent is untouched.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing == "" {
		return
	}
	if s.editingFromReview {
		s.phase = PhaseReviewing
	}
	s.clearEditLocked()
}

// DeleteAgent drops the agent unconditionally. A delete of the agent being
// edited also clears the edit in progress.
func (s *Session) DeleteAgent(id TempID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCollectingAgents && s.phase != PhaseReviewing {
		return apperrors.InvalidTransition(fmt.Sprintf("cannot delete agent in phase %s", s.phase))
	}

	for i, a := range s.agents {
		if a.TempID == id {
			s.agents = append(s.agents[:i], s.agents[i+1:]...)
			if s.editing == id {
				s.clearEditLocked()
			}
			return nil
		}
	}
	return apperrors.NotFound("agent", nil)
}

// Review moves to the confirmation table.
func (s *Session) Review() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseCollectingAgents {
		return apperrors.InvalidTransition(fmt.Sprintf("cannot review in phase %s", s.phase))
	}
	s.clearEditLocked()
	s.phase = PhaseReviewing
	return nil
}

// Back returns from review to agent collection.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseReviewing {
		return apperrors.InvalidTransition(fmt.Sprintf("cannot go back in phase %s", s.phase))
	}
	s.phase = PhaseCollectingAgents
	return nil
}

// BeginCommit moves to submitting and snapshots the records in submission
// order: leader first, then agents in list order.
func (s *Session) BeginCommit() ([]model.PersonInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseReviewing {
		return nil, apperrors.InvalidTransition(fmt.Sprintf("cannot commit in phase %s", s.phase))
	}

	records := make([]model.PersonInput, 0, len(s.agents)+1)
	records = append(records, *s.leader)
	for _, a := range s.agents {
		records = append(records, a.Input)
	}

	s.phase = PhaseSubmitting
	s.lastError = ""
	return records, nil
}

// FailCommit halts the commit and returns to review with the error visible.
// Records submitted before the failure stay committed upstream; a later
// retry will resubmit everything from the leader again.
func (s *Session) FailCommit(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseSubmitting {
		return
	}
	s.lastError = message
	s.phase = PhaseReviewing
}

// CompleteCommit makes the session terminal and discards its local copies.
func (s *Session) CompleteCommit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseSubmitting {
		return
	}
	s.leader = nil
	s.agents = nil
	s.clearEditLocked()
	s.phase = PhaseDone
}

func (s *Session) findLocked(id TempID) *Agent {
	for _, a := range s.agents {
		if a.TempID == id {
			return a
		}
	}
	return nil
}

func (s *Session) clearEditLocked() {
	s.editing = ""
	s.editingFromReview = false
}
