package agent

import (
	"context"
	"log"
	"strings"

	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/session"
)

// DefaultPlanningKeywords trigger the planning flow. Anything else is treated
// as a message to send and hands off to the communication agent, still behind
// the review gate.
var DefaultPlanningKeywords = []string{
	"event", "plan", "organize", "organise", "schedule", "coordinate",
	"party", "birthday", "wedding", "celebration", "gathering", "picnic",
	"meeting", "conference", "dinner", "bbq", "barbecue",
}

// Orchestrator triages the incoming request: planning requests hand off to
// the scheduler, everything else goes to the communication agent.
type Orchestrator struct {
	keywords []string
	logger   *log.Logger
}

// NewOrchestrator builds the triage agent. Empty keywords fall back to the
// default vocabulary.
func NewOrchestrator(keywords []string, logger *log.Logger) *Orchestrator {
	if len(keywords) == 0 {
		keywords = DefaultPlanningKeywords
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{keywords: keywords, logger: logger}
}

// Step classifies the request and records the hand-off in the conversation.
func (o *Orchestrator) Step(ctx context.Context, st *session.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	request := st.Plan.Request
	st.Planning = o.isPlanningRequest(request)
	if st.Planning {
		o.logger.Printf("planning request accepted: %q", truncate(request, 80))
		st.Conversation.Append(conversation.AgentOutput("orchestrator",
			"This looks like an event to plan. Handing off to the scheduling agent."))
	} else {
		o.logger.Printf("communication request accepted: %q", truncate(request, 80))
		st.Conversation.Append(conversation.AgentOutput("orchestrator",
			"This looks like a message to send rather than an event to plan. Handing off to the communication agent."))
	}
	return nil
}

func (o *Orchestrator) isPlanningRequest(request string) bool {
	r := strings.ToLower(request)
	for _, kw := range o.keywords {
		if strings.Contains(r, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
