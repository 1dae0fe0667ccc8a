package decision

import (
	"context"
	"strings"

	"github.com/planora/planora/internal/capability"
	"github.com/planora/planora/internal/conversation"
)

// RevisionMarker prefixes operator revision text inside a directive. Text
// after the marker steers which domains get refreshed.
const RevisionMarker = "Revision requested:"

// RuleDecider selects capabilities deterministically from the request text.
// It needs no network and is the default decider.
type RuleDecider struct{}

// NewRuleDecider returns the deterministic decider.
func NewRuleDecider() *RuleDecider { return &RuleDecider{} }

func (d *RuleDecider) Decide(ctx context.Context, log *conversation.Log, cards []capability.Card, directive string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	request := firstUserRequest(log)
	offered := map[string]bool{}
	planning := false
	messaging := false
	for _, c := range cards {
		offered[c.Name] = true
		switch c.Group {
		case capability.GroupPlanning:
			planning = true
		case capability.GroupMessaging:
			messaging = true
		}
	}
	revision := revisionText(directive)

	if planning {
		return d.decidePlanning(log, offered, request, revision), nil
	}
	if messaging {
		return d.decideMessaging(log, offered, request, revision), nil
	}
	return Decision{Narrative: "No capabilities offered, nothing to do."}, nil
}

func (d *RuleDecider) decidePlanning(log *conversation.Log, offered map[string]bool, request, revision string) Decision {
	q := strings.ToLower(request)

	wanted := []string{capability.Calendar, capability.Finance, capability.Health, capability.Invitation}
	if containsAny(q, "outdoor", "park", "garden", "beach", "picnic", "bbq") {
		wanted = append(wanted, capability.Weather)
	}
	// Weddings, receptions and conferences happen at a venue even when the
	// request never says "venue", so guests need traffic guidance too.
	venue := containsAny(q, "venue", "downtown", "restaurant", "hall", "hotel",
		"wedding", "reception", "ceremony", "conference")
	if venue && !containsAny(q, "home", "house", "backyard") {
		wanted = append(wanted, capability.Traffic)
	}

	forced := revisionDomains(revision)
	query := request
	if revision != "" {
		query = request + " (" + revision + ")"
	}

	var calls []conversation.ToolCall
	for _, name := range wanted {
		if !offered[name] {
			continue
		}
		if log.HasResult(name) && !forced[name] {
			continue
		}
		calls = append(calls, conversation.ToolCall{
			Name:      name,
			Arguments: map[string]any{"query": query},
		})
	}
	if len(calls) == 0 {
		return Decision{Narrative: "Scheduling complete. All planning areas are covered; ready for review."}
	}
	return Decision{
		Narrative: "Gathering planning information.",
		ToolCalls: calls,
	}
}

func (d *RuleDecider) decideMessaging(log *conversation.Log, offered map[string]bool, request, revision string) Decision {
	q := strings.ToLower(request)
	informal := containsAny(q, "friend", "family", "birthday", "casual", "party", "home")
	formal := containsAny(q, "business", "meeting", "colleague", "corporate", "formal", "conference")

	var channels []string
	switch {
	case informal && formal:
		channels = []string{capability.ChatMessage, capability.EmailSend}
	case informal:
		channels = []string{capability.ChatMessage}
	case formal:
		channels = []string{capability.EmailSend}
	default:
		channels = []string{capability.ChatMessage, capability.EmailSend}
	}

	message := invitationDraft(log, request)
	if revision != "" {
		message += " (" + revision + ")"
	}
	var calls []conversation.ToolCall
	for _, name := range channels {
		if !offered[name] || log.HasResult(name) {
			continue
		}
		calls = append(calls, conversation.ToolCall{
			Name: name,
			Arguments: map[string]any{
				"message":  message,
				"contacts": "auto_detect",
			},
		})
	}
	if len(calls) == 0 {
		return Decision{Narrative: "Messaging complete. All invitations have been delivered."}
	}
	return Decision{
		Narrative: "Sending invitations over the selected channels.",
		ToolCalls: calls,
	}
}

// invitationDraft pulls the invitation content gathered during planning, so
// the outgoing message reflects the drafted text rather than the raw request.
// Messaging-only sessions have no draft; the request text is the message.
func invitationDraft(log *conversation.Log, request string) string {
	turn, ok := log.LastWhere(func(t conversation.Turn) bool {
		return t.Kind == conversation.KindToolResult && t.Tool == capability.Invitation && !t.IsError
	})
	if ok {
		return turn.Text
	}
	if request != "" {
		return request
	}
	return "You're invited to our event!"
}

func firstUserRequest(log *conversation.Log) string {
	for _, t := range log.Turns() {
		if t.Kind == conversation.KindUserInput {
			return t.Text
		}
	}
	return ""
}

func revisionText(directive string) string {
	idx := strings.Index(directive, RevisionMarker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(directive[idx+len(RevisionMarker):])
}

// revisionDomains maps operator revision wording to the capabilities whose
// findings should be refreshed. Unmatched wording refreshes the invitation,
// the artifact the operator actually sees.
func revisionDomains(revision string) map[string]bool {
	if revision == "" {
		return nil
	}
	r := strings.ToLower(revision)
	forced := map[string]bool{}
	if containsAny(r, "date", "time", "when", "reschedule", "day") {
		forced[capability.Calendar] = true
		forced[capability.Invitation] = true
	}
	if containsAny(r, "budget", "cost", "money", "cheap", "expensive", "price") {
		forced[capability.Finance] = true
	}
	if containsAny(r, "weather", "forecast", "rain") {
		forced[capability.Weather] = true
	}
	if containsAny(r, "traffic", "parking", "transport") {
		forced[capability.Traffic] = true
	}
	if containsAny(r, "health", "safety", "food", "allerg", "menu") {
		forced[capability.Health] = true
	}
	if containsAny(r, "invit", "guest", "rsvp", "wording") {
		forced[capability.Invitation] = true
	}
	if len(forced) == 0 {
		forced[capability.Invitation] = true
	}
	return forced
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
