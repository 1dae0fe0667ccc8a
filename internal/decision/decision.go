// Package decision turns a conversation and a set of offered capabilities
// into the next batch of tool calls, or a narrative when no call is needed.
package decision

import (
	"context"
	"errors"

	"github.com/planora/planora/internal/capability"
	"github.com/planora/planora/internal/conversation"
)

// ErrUnavailable marks a transient decision failure. Callers retry a bounded
// number of times before giving up on the session.
var ErrUnavailable = errors.New("decision unavailable")

// Decision is one deciding step: optional narrative plus zero or more
// capability calls to run next.
type Decision struct {
	Narrative string
	ToolCalls []conversation.ToolCall
}

// Decider produces the next decision for an agent. The directive carries the
// agent's standing instructions plus any operator revision text.
type Decider interface {
	Decide(ctx context.Context, log *conversation.Log, cards []capability.Card, directive string) (Decision, error)
}
