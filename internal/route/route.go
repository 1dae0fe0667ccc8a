// Package route decides which component runs next. Next is a pure function
// of session state; it mutates nothing, so calling it twice in a row always
// yields the same component.
package route

import (
	"github.com/planora/planora/internal/operator"
	"github.com/planora/planora/internal/session"
)

// DefaultMaxReentries bounds how many times the review checkpoint can send
// the session back into scheduling.
const DefaultMaxReentries = 3

// Policy holds the routing limits.
type Policy struct {
	MaxReentries int
}

// NewPolicy applies the default cap when none is configured.
func NewPolicy(maxReentries int) Policy {
	if maxReentries <= 0 {
		maxReentries = DefaultMaxReentries
	}
	return Policy{MaxReentries: maxReentries}
}

// Next returns the component that should run after the active one.
func (p Policy) Next(st *session.State) session.Component {
	switch st.Active {
	case session.ComponentOrchestrator:
		if st.Planning {
			return session.ComponentScheduler
		}
		// Messaging-only requests skip scheduling but still face the
		// review gate before anything is sent.
		return session.ComponentCheckpoint

	case session.ComponentScheduler:
		if len(st.Conversation.PendingToolCalls()) > 0 {
			return session.ComponentPlanningTools
		}
		return session.ComponentCheckpoint

	case session.ComponentPlanningTools:
		return session.ComponentScheduler

	case session.ComponentCheckpoint:
		switch operator.Verdict(st.LastVerdict) {
		case operator.VerdictApprove:
			return session.ComponentCommunication
		case operator.VerdictCancel:
			return session.ComponentTerminal
		default:
			if p.LoopExceeded(st) {
				return session.ComponentTerminal
			}
			if st.Planning {
				return session.ComponentScheduler
			}
			// Messaging-only sessions have no scheduling to redo; the
			// noted change feeds the next review directly.
			return session.ComponentCheckpoint
		}

	case session.ComponentCommunication:
		if len(st.Conversation.PendingToolCalls()) > 0 {
			return session.ComponentMessagingTools
		}
		return session.ComponentTerminal

	case session.ComponentMessagingTools:
		return session.ComponentCommunication

	default:
		return session.ComponentTerminal
	}
}

// LoopExceeded reports whether the checkpoint has revised the plan more times
// than the cap allows. The session then terminates instead of cycling.
func (p Policy) LoopExceeded(st *session.State) bool {
	return st.Visits[session.ComponentCheckpoint] > p.MaxReentries
}
