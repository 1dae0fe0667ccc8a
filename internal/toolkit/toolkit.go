package toolkit

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/planora/planora/internal/capability"
	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/plan"
)

// Executor runs a named capability against a session's plan record and
// returns its textual result. Implementations are synchronous; failures
// surface as *Error and are recorded, never retried.
type Executor interface {
	Execute(ctx context.Context, rec *plan.Record, call conversation.ToolCall) (string, error)
}

// Error wraps a capability failure with the capability name.
type Error struct {
	Capability string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Capability, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Toolkit implements Executor over the built-in capability set. Results are
// canned content keyed off the request text; the router treats them as opaque.
type Toolkit struct {
	rng *rand.Rand
}

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithSeed makes random picks (weather phrasing) deterministic.
func WithSeed(seed int64) Option {
	return func(tk *Toolkit) {
		tk.rng = rand.New(rand.NewSource(seed))
	}
}

// New builds a Toolkit.
func New(opts ...Option) *Toolkit {
	tk := &Toolkit{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	for _, opt := range opts {
		opt(tk)
	}
	return tk
}

// Execute dispatches a capability call. Unknown capability names return an
// *Error; the caller decides whether to record or drop it.
func (tk *Toolkit) Execute(ctx context.Context, rec *plan.Record, call conversation.ToolCall) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Capability: call.Name, Err: err}
	}
	query := argString(call.Arguments, "query")
	if query == "" {
		query = rec.Request
	}
	switch call.Name {
	case capability.Calendar:
		result := tk.calendar(query)
		rec.Schedule = result
		return result, nil
	case capability.Finance:
		result := tk.finance(query)
		rec.Budget = result
		return result, nil
	case capability.Health:
		result := tk.health(query)
		rec.Safety = result
		return result, nil
	case capability.Weather:
		result := tk.weather(query)
		rec.Weather = result
		return result, nil
	case capability.Traffic:
		result := tk.traffic(query)
		rec.Transportation = result
		return result, nil
	case capability.Invitation:
		result := tk.invitation(query)
		rec.Invitation = result
		return result, nil
	case capability.ChatMessage:
		result := tk.chatMessage(call.Arguments)
		rec.ChatStatus = result
		return result, nil
	case capability.EmailSend:
		result := tk.emailMessage(call.Arguments)
		rec.EmailStatus = result
		return result, nil
	default:
		return "", &Error{Capability: call.Name, Err: fmt.Errorf("unknown capability")}
	}
}

func (tk *Toolkit) calendar(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "june 30") || strings.Contains(q, "30th june"):
		return "Calendar check: June 30th is available, no conflicts found. Recommended slots: 2:00 PM - 6:00 PM or 10:00 AM - 2:00 PM. Weekend timing works well for family gatherings."
	case containsAny(q, "birthday", "party", "celebration"):
		return "Calendar analysis: weekend dates are optimal for parties. Multiple slots available; consider 2-6 PM for family events or 7-11 PM for adult celebrations."
	case containsAny(q, "meeting", "conference", "business"):
		return "Calendar check: weekday business hours available. Recommended slots: 10:00 AM - 12:00 PM or 2:00 PM - 4:00 PM. Conference rooms free."
	default:
		return fmt.Sprintf("Calendar checked for: %s. Open time slots found, no major conflicts detected.", query)
	}
}

func (tk *Toolkit) health(query string) string {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, "food", "party", "dinner", "catering"):
		return "Health & safety for food events: common allergens to flag are nuts, dairy and gluten. Offer vegetarian/vegan options and keep a first aid kit accessible."
	case strings.Contains(q, "outdoor"):
		return "Health & safety for outdoor events: plan sun protection and shade, consider insect repellent, and prepare a weather contingency."
	default:
		return "General health & safety guidelines: confirm venue accessibility and keep emergency contact information on hand."
	}
}

func (tk *Toolkit) traffic(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "home"):
		return "Transportation for home events: residential access is easy. Suggest guests arrive 15-20 minutes early; street parking available."
	case strings.Contains(q, "downtown"):
		return "Urban venue transportation: peak congestion expected. Recommend public transport; parking is limited and expensive."
	default:
		return fmt.Sprintf("Traffic analysis for: %s. Check venue accessibility and parking options ahead of time.", query)
	}
}

func (tk *Toolkit) invitation(query string) string {
	q := strings.ToLower(query)
	if containsAny(q, "birthday", "party", "home") {
		return "Invitation draft (informal):\n\nYou're invited to a birthday celebration!\nJoin us for a wonderful party.\nDate: June 30th | Time: 2:00 PM - 6:00 PM | Venue: at our home\nRSVP by June 25th!"
	}
	return "Invitation draft (formal):\n\nYou are cordially invited to attend [EVENT NAME].\nDate: [Event Date] | Time: [Event Time] | Venue: [Event Location]\nRSVP by [Date]."
}

func (tk *Toolkit) chatMessage(args map[string]any) string {
	message := argString(args, "message")
	contacts := argString(args, "contacts")
	if contacts == "" || contacts == "auto_detect" {
		if strings.Contains(strings.ToLower(message), "birthday") {
			contacts = "family_and_friends"
		} else {
			contacts = "general_contacts"
		}
	}
	return fmt.Sprintf("Chat message sent.\nTo: %s\nPreview: %s\nStatus: delivered to all contacts", contacts, truncate(message, 100))
}

func (tk *Toolkit) emailMessage(args map[string]any) string {
	message := argString(args, "message")
	contacts := argString(args, "contacts")
	if contacts == "" || contacts == "auto_detect" {
		if strings.Contains(strings.ToLower(message), "meeting") {
			contacts = "professional_contacts"
		} else {
			contacts = "general_email_list"
		}
	}
	return fmt.Sprintf("Email invitations sent.\nTo: %s\nSubject: Event Invitation\nPreview: %s\nStatus: sent to all recipients", contacts, truncate(message, 100))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func argString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
