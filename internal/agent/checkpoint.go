package agent

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/operator"
	"github.com/planora/planora/internal/plan"
	"github.com/planora/planora/internal/session"
)

// Checkpoint is the mandatory review gate in front of the messaging tools.
// Nothing is sent until the operator approves; with no operator attached the
// session suspends instead of blocking.
type Checkpoint struct {
	op     operator.Interface
	logger *log.Logger
}

// NewCheckpoint builds the review gate. A nil operator makes every Step
// suspend with ErrAwaitOperator.
func NewCheckpoint(op operator.Interface, logger *log.Logger) *Checkpoint {
	if logger == nil {
		logger = log.New(log.Writer(), "[REVIEW] ", log.LstdFlags)
	}
	return &Checkpoint{op: op, logger: logger}
}

// Step presents the plan and collects the operator's verdict.
func (c *Checkpoint) Step(ctx context.Context, st *session.State) error {
	prompt := ReviewPrompt(st)
	if c.op == nil {
		st.PendingPrompt = prompt
		st.Status = session.StatusAwaitingOperator
		return ErrAwaitOperator
	}

	reply, err := c.op.Prompt(ctx, prompt)
	if errors.Is(err, operator.ErrCancelled) {
		reply = "cancel"
	} else if err != nil {
		return fmt.Errorf("checkpoint prompt: %w", err)
	}
	ApplyDecision(st, reply)
	c.logger.Printf("operator verdict: %s", st.LastVerdict)
	return nil
}

// ReviewPrompt renders the checkpoint message shown to the operator.
func ReviewPrompt(st *session.State) string {
	p := st.Plan.Digest()
	if st.RevisionHint != "" {
		p += "\nNoted change: " + st.RevisionHint
	}
	return p +
		"\nReply \"proceed\" to send the messages, describe any change to revise, or \"cancel\" to stop."
}

// ApplyDecision records an operator reply on the session. Hosts resuming a
// suspended session apply replies through here so the semantics match the
// inline checkpoint exactly.
func ApplyDecision(st *session.State, reply string) {
	st.Conversation.Append(conversation.UserInput(reply))
	st.PendingPrompt = ""
	verdict := operator.Classify(reply)
	st.LastVerdict = string(verdict)
	switch verdict {
	case operator.VerdictCancel:
		st.Status = session.StatusCancelled
	case operator.VerdictRevise:
		st.RevisionHint = reply
		st.Plan.Phase = plan.PhaseStart
		st.Status = session.StatusRunning
	default:
		st.Status = session.StatusRunning
	}
}
