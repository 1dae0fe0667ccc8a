// Package operator abstracts the human in the loop. A session blocks on the
// operator at the review checkpoint; hosts that cannot block (the HTTP API)
// run without one and suspend the session instead.
package operator

import (
	"context"
	"errors"
	"strings"
)

// ErrCancelled is returned when the operator walks away from the session.
var ErrCancelled = errors.New("operator cancelled")

// Interface delivers a prompt to the operator and returns their reply.
type Interface interface {
	Prompt(ctx context.Context, message string) (string, error)
}

// Verdict is the classified operator reply at the review checkpoint.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictRevise  Verdict = "revise"
	VerdictCancel  Verdict = "cancel"
)

var approvals = []string{"proceed", "continue", "yes", "approve", "approved", "looks good", "go ahead", "send", "ok", "okay"}

var cancellations = []string{"quit", "exit", "cancel", "stop", "abort"}

// Classify buckets an operator reply. Anything that is neither an approval
// nor a cancellation counts as revision feedback; ambiguity must never reach
// the messaging capabilities.
func Classify(reply string) Verdict {
	r := strings.ToLower(strings.TrimSpace(reply))
	for _, word := range approvals {
		if r == word {
			return VerdictApprove
		}
	}
	for _, word := range cancellations {
		if r == word {
			return VerdictCancel
		}
	}
	return VerdictRevise
}
