// Package agent implements the deciding components of the planning graph:
// the orchestrator that triages requests, the scheduler that gathers the
// plan, the review checkpoint and the communication agent that sends
// invitations.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/planora/planora/internal/capability"
	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/decision"
)

// ErrAwaitOperator signals that the session needs a human reply before it can
// continue. The runner persists the session and returns control to the host.
var ErrAwaitOperator = errors.New("awaiting operator")

const (
	defaultDecisionRetries = 3
	defaultDecisionBackoff = 500 * time.Millisecond
)

// decideWithRetry runs the decider, retrying transient failures a bounded
// number of times. Any other failure, or exhaustion of the retry budget, is
// fatal for the session.
func decideWithRetry(ctx context.Context, d decision.Decider, log_ *conversation.Log, cards []capability.Card, directive string, retries int, backoff time.Duration, logger *log.Logger) (decision.Decision, error) {
	if retries <= 0 {
		retries = defaultDecisionRetries
	}
	if backoff <= 0 {
		backoff = defaultDecisionBackoff
	}
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		dec, err := d.Decide(ctx, log_, cards, directive)
		if err == nil {
			return dec, nil
		}
		if !errors.Is(err, decision.ErrUnavailable) {
			return decision.Decision{}, err
		}
		lastErr = err
		logger.Printf("decision attempt %d/%d failed: %v", attempt, retries, err)
		if attempt < retries {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return decision.Decision{}, ctx.Err()
			}
		}
	}
	return decision.Decision{}, fmt.Errorf("decision failed after %d attempts: %w", retries, lastErr)
}

// filterCalls drops calls that name an unknown capability or one outside the
// offered group. Dropped calls are logged and never executed.
func filterCalls(reg *capability.Registry, group capability.Group, calls []conversation.ToolCall, logger *log.Logger) []conversation.ToolCall {
	valid := calls[:0]
	for _, call := range calls {
		card, ok := reg.Card(call.Name)
		if !ok {
			logger.Printf("dropping call to unknown capability %q", call.Name)
			continue
		}
		if card.Group != group {
			logger.Printf("dropping call to %q: not in the %s group", call.Name, group)
			continue
		}
		valid = append(valid, call)
	}
	return valid
}
