package agent

import (
	"context"
	"log"
	"time"

	"github.com/planora/planora/internal/capability"
	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/decision"
	"github.com/planora/planora/internal/plan"
	"github.com/planora/planora/internal/session"
)

const schedulerDirective = "You are the scheduling agent for an event planner. " +
	"Call the planning capabilities needed for the request, one batch at a time, " +
	"and summarize once every area is covered. Do not call a capability whose result is already in the conversation."

// Scheduler gathers the plan by repeatedly asking the decider which planning
// capabilities to call until every needed area is covered.
type Scheduler struct {
	decider  decision.Decider
	registry *capability.Registry
	retries  int
	backoff  time.Duration
	logger   *log.Logger
}

// NewScheduler builds the scheduling agent.
func NewScheduler(d decision.Decider, reg *capability.Registry, retries int, backoff time.Duration, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	return &Scheduler{decider: d, registry: reg, retries: retries, backoff: backoff, logger: logger}
}

// Step decides the next batch of planning calls. A decision with no calls
// marks scheduling complete and the session moves to review.
func (s *Scheduler) Step(ctx context.Context, st *session.State) error {
	if st.Plan.SchedulingDone() && st.RevisionHint == "" {
		st.Conversation.Append(conversation.AgentOutput("scheduler", "Scheduling already completed."))
		return nil
	}

	directive := schedulerDirective
	if st.RevisionHint != "" {
		directive += "\n" + decision.RevisionMarker + " " + st.RevisionHint
	}

	cards := s.registry.Group(capability.GroupPlanning)
	dec, err := decideWithRetry(ctx, s.decider, st.Conversation, cards, directive, s.retries, s.backoff, s.logger)
	if err != nil {
		return err
	}

	calls := filterCalls(s.registry, capability.GroupPlanning, dec.ToolCalls, s.logger)
	if len(calls) == 0 {
		narrative := dec.Narrative
		if narrative == "" {
			narrative = "Scheduling complete. The plan is ready for review."
		}
		st.Plan.Phase = plan.PhaseSchedulingComplete
		st.RevisionHint = ""
		st.Conversation.Append(conversation.AgentOutput("scheduler", narrative))
		s.logger.Printf("scheduling complete for session %s", st.ID)
		return nil
	}

	// The revision hint is spent once it has shaped a batch of calls.
	st.RevisionHint = ""
	st.Conversation.Append(conversation.AgentOutput("scheduler", dec.Narrative, calls...))
	s.logger.Printf("issued %d planning calls", len(calls))
	return nil
}
