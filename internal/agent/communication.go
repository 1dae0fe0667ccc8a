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

const communicationDirective = "You are the communication agent for an event planner. " +
	"The operator has approved. Send the messages over the channels that fit the audience, " +
	"then summarize the delivery status. Do not send over a channel that already confirmed delivery."

// Communication delivers the approved messages. It only ever runs after the
// review checkpoint approved, whether the session planned an event first or
// came straight from triage as a messaging request.
type Communication struct {
	decider  decision.Decider
	registry *capability.Registry
	retries  int
	backoff  time.Duration
	logger   *log.Logger
}

// NewCommunication builds the messaging agent.
func NewCommunication(d decision.Decider, reg *capability.Registry, retries int, backoff time.Duration, logger *log.Logger) *Communication {
	if logger == nil {
		logger = log.New(log.Writer(), "[COMMS] ", log.LstdFlags)
	}
	return &Communication{decider: d, registry: reg, retries: retries, backoff: backoff, logger: logger}
}

// Step decides which messaging capabilities still need to run. A decision
// with no calls marks messaging complete and the session terminates.
func (c *Communication) Step(ctx context.Context, st *session.State) error {
	directive := communicationDirective
	if st.RevisionHint != "" {
		directive += "\n" + decision.RevisionMarker + " " + st.RevisionHint
	}

	cards := c.registry.Group(capability.GroupMessaging)
	dec, err := decideWithRetry(ctx, c.decider, st.Conversation, cards, directive, c.retries, c.backoff, c.logger)
	if err != nil {
		return err
	}

	calls := filterCalls(c.registry, capability.GroupMessaging, dec.ToolCalls, c.logger)
	if len(calls) == 0 {
		narrative := dec.Narrative
		if narrative == "" {
			narrative = "Messaging complete. All invitations have been delivered."
		}
		st.Plan.Phase = plan.PhaseMessagingComplete
		st.RevisionHint = ""
		st.Conversation.Append(conversation.AgentOutput("communication", narrative))
		c.logger.Printf("messaging complete for session %s", st.ID)
		return nil
	}

	st.RevisionHint = ""
	st.Conversation.Append(conversation.AgentOutput("communication", dec.Narrative, calls...))
	c.logger.Printf("issued %d messaging calls", len(calls))
	return nil
}
