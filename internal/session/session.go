// Package session holds the durable state of one planning run and the stores
// that persist it across suspensions.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/plan"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Component identifies a node of the routing graph.
type Component string

const (
	ComponentOrchestrator   Component = "orchestrator"
	ComponentScheduler      Component = "scheduler"
	ComponentPlanningTools  Component = "planning_tools"
	ComponentCheckpoint     Component = "human_checkpoint"
	ComponentCommunication  Component = "communication"
	ComponentMessagingTools Component = "messaging_tools"
	ComponentTerminal       Component = "terminal"
)

// Status tracks where a session is in its lifecycle.
type Status string

const (
	StatusRunning          Status = "running"
	StatusAwaitingOperator Status = "awaiting_operator"
	StatusCancelled        Status = "cancelled"
	StatusFailed           Status = "failed"
	StatusDone             Status = "done"
)

// State is everything a suspended session needs to resume: the conversation,
// the plan record, the active component and per-component visit counts.
type State struct {
	ID            string            `json:"id"`
	Status        Status            `json:"status"`
	Active        Component         `json:"active"`
	Conversation  *conversation.Log `json:"conversation"`
	Plan          *plan.Record      `json:"plan"`
	Visits        map[Component]int `json:"visits"`
	Planning      bool              `json:"planning"`
	LastVerdict   string            `json:"last_verdict,omitempty"`
	RevisionHint  string            `json:"revision_hint,omitempty"`
	PendingPrompt string            `json:"pending_prompt,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewState starts a fresh session for one request. Plan and conversation are
// owned exclusively by this session.
func NewState(request string) *State {
	now := time.Now().UTC()
	log := conversation.NewLog()
	log.Append(conversation.UserInput(request))
	rec := plan.NewRecord()
	rec.Request = request
	return &State{
		ID:           uuid.NewString(),
		Status:       StatusRunning,
		Active:       ComponentOrchestrator,
		Conversation: log,
		Plan:         rec,
		Visits:       map[Component]int{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Visit records entry into a component and returns how many times it has been
// entered so far, the checkpoint re-entry cap is enforced on this count.
func (s *State) Visit(c Component) int {
	if s.Visits == nil {
		s.Visits = map[Component]int{}
	}
	s.Visits[c]++
	return s.Visits[c]
}

// Store persists session state between steps and across suspensions.
type Store interface {
	Save(ctx context.Context, st *State) error
	Load(ctx context.Context, id string) (*State, error)
	Delete(ctx context.Context, id string) error
}
