// Package runner drives a session through the planning graph: it executes
// the active component, persists the session after every step, and routes
// until the session terminates or suspends at the review checkpoint.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/planora/planora/internal/agent"
	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/route"
	"github.com/planora/planora/internal/session"
	"github.com/planora/planora/internal/toolkit"
)

// DefaultMaxSteps bounds one run of the graph. A healthy session finishes in
// well under this; the bound only catches routing bugs.
const DefaultMaxSteps = 50

// ErrNotSuspended is returned when a decision is posted to a session that is
// not waiting at the review checkpoint.
var ErrNotSuspended = errors.New("session is not awaiting an operator decision")

// Deps wires a Runner. Operator-less hosts leave Checkpoint built with a nil
// operator so sessions suspend instead of blocking.
type Deps struct {
	Orchestrator  *agent.Orchestrator
	Scheduler     *agent.Scheduler
	Checkpoint    *agent.Checkpoint
	Communication *agent.Communication
	Tools         toolkit.Executor
	Store         session.Store
	Policy        route.Policy
	MaxSteps      int
	Logger        *log.Logger
	Metrics       *Metrics
}

// Runner executes planning sessions.
type Runner struct {
	orchestrator  *agent.Orchestrator
	scheduler     *agent.Scheduler
	checkpoint    *agent.Checkpoint
	communication *agent.Communication
	tools         toolkit.Executor
	store         session.Store
	policy        route.Policy
	maxSteps      int
	logger        *log.Logger
	metrics       *Metrics
}

// New builds a Runner from its dependencies.
func New(deps Deps) *Runner {
	maxSteps := deps.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[RUNNER] ", log.LstdFlags)
	}
	return &Runner{
		orchestrator:  deps.Orchestrator,
		scheduler:     deps.Scheduler,
		checkpoint:    deps.Checkpoint,
		communication: deps.Communication,
		tools:         deps.Tools,
		store:         deps.Store,
		policy:        deps.Policy,
		maxSteps:      maxSteps,
		logger:        logger,
		metrics:       deps.Metrics,
	}
}

// Start opens a new session for a request and runs it until it terminates or
// suspends. The returned state reports where it stopped.
func (r *Runner) Start(ctx context.Context, request string) (*session.State, error) {
	st := session.NewState(request)
	r.logger.Printf("session %s started", st.ID)
	return r.run(ctx, st, true)
}

// Resume applies an operator reply to a suspended session and continues it.
func (r *Runner) Resume(ctx context.Context, id, reply string) (*session.State, error) {
	st, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Status != session.StatusAwaitingOperator {
		return nil, fmt.Errorf("%w: session %s is %s", ErrNotSuspended, id, st.Status)
	}
	agent.ApplyDecision(st, reply)
	r.logger.Printf("session %s resumed with verdict %s", st.ID, st.LastVerdict)
	// The checkpoint already ran; route onward from it.
	return r.run(ctx, st, false)
}

// Load returns a session without advancing it.
func (r *Runner) Load(ctx context.Context, id string) (*session.State, error) {
	return r.store.Load(ctx, id)
}

// Cancel abandons a session. Nothing is sent and the stored state is removed.
func (r *Runner) Cancel(ctx context.Context, id string) error {
	st, err := r.store.Load(ctx, id)
	if err != nil {
		return err
	}
	st.Status = session.StatusCancelled
	r.metrics.session(string(session.StatusCancelled))
	r.logger.Printf("session %s cancelled, no messages sent", st.ID)
	return r.store.Delete(ctx, st.ID)
}

// run executes the graph. When execActive is false the active component has
// already run (a resumed checkpoint) and routing starts immediately.
func (r *Runner) run(ctx context.Context, st *session.State, execActive bool) (*session.State, error) {
	for step := 0; step < r.maxSteps; step++ {
		if execActive {
			if st.Active == session.ComponentTerminal {
				return r.finalize(ctx, st)
			}
			st.Visit(st.Active)
			r.metrics.step(string(st.Active))

			err := r.execute(ctx, st)
			if errors.Is(err, agent.ErrAwaitOperator) {
				if saveErr := r.store.Save(ctx, st); saveErr != nil {
					return st, saveErr
				}
				r.logger.Printf("session %s suspended for operator review", st.ID)
				return st, nil
			}
			if err != nil {
				st.Status = session.StatusFailed
				st.FailureReason = err.Error()
				r.metrics.session(string(session.StatusFailed))
				_ = r.store.Save(ctx, st)
				return st, err
			}
			if saveErr := r.store.Save(ctx, st); saveErr != nil {
				return st, saveErr
			}
		}
		execActive = true

		next := r.policy.Next(st)
		if next == session.ComponentTerminal && st.Active == session.ComponentCheckpoint && r.policy.LoopExceeded(st) {
			st.Status = session.StatusFailed
			st.FailureReason = "revision limit reached"
			r.logger.Printf("session %s terminated: revision limit reached", st.ID)
		}
		st.Active = next
	}

	st.Status = session.StatusFailed
	st.FailureReason = "step budget exhausted"
	r.metrics.session(string(session.StatusFailed))
	_ = r.store.Save(ctx, st)
	return st, fmt.Errorf("session %s exceeded %d steps", st.ID, r.maxSteps)
}

func (r *Runner) execute(ctx context.Context, st *session.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch st.Active {
	case session.ComponentOrchestrator:
		return r.orchestrator.Step(ctx, st)
	case session.ComponentScheduler:
		return r.scheduler.Step(ctx, st)
	case session.ComponentCheckpoint:
		return r.checkpoint.Step(ctx, st)
	case session.ComponentCommunication:
		return r.communication.Step(ctx, st)
	case session.ComponentPlanningTools, session.ComponentMessagingTools:
		return r.runTools(ctx, st)
	default:
		return fmt.Errorf("unknown component %q", st.Active)
	}
}

// runTools executes the pending capability calls in the order they were
// announced. A capability failure is recorded as an error turn and the batch
// continues; only context cancellation aborts.
func (r *Runner) runTools(ctx context.Context, st *session.State) error {
	for _, call := range st.Conversation.PendingToolCalls() {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := r.tools.Execute(ctx, st.Plan, call)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Printf("capability %s failed: %v", call.Name, err)
			r.metrics.call(call.Name, "error")
			st.Conversation.Append(conversation.ToolError(call.Name, err.Error()))
			continue
		}
		r.metrics.call(call.Name, "ok")
		st.Conversation.Append(conversation.ToolResult(call.Name, out))
	}
	return nil
}

func (r *Runner) finalize(ctx context.Context, st *session.State) (*session.State, error) {
	switch st.Status {
	case session.StatusCancelled:
		st.Conversation.Append(conversation.AgentOutput("orchestrator",
			"Session cancelled. No invitations were sent."))
		r.metrics.session(string(session.StatusCancelled))
		r.logger.Printf("session %s cancelled, no messages sent", st.ID)
		if err := r.store.Delete(ctx, st.ID); err != nil {
			return st, err
		}
		return st, nil
	case session.StatusFailed:
		r.metrics.session(string(session.StatusFailed))
		if err := r.store.Save(ctx, st); err != nil {
			return st, err
		}
		return st, nil
	default:
		st.Status = session.StatusDone
		r.metrics.session(string(session.StatusDone))
		r.logger.Printf("session %s finished", st.ID)
		if err := r.store.Save(ctx, st); err != nil {
			return st, err
		}
		return st, nil
	}
}
