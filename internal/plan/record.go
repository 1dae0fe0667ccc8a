package plan

import (
	"fmt"
	"strings"
)

// Phase marks how far a planning session has progressed.
type Phase string

const (
	PhaseStart              Phase = "start"
	PhaseSchedulingComplete Phase = "scheduling_complete"
	PhaseMessagingComplete  Phase = "messaging_complete"
)

// Record accumulates per-domain findings for one planning session. Each
// session owns exactly one record; it is never shared across sessions.
type Record struct {
	Request        string `json:"request"`
	Schedule       string `json:"schedule"`
	Budget         string `json:"budget"`
	Safety         string `json:"safety"`
	Weather        string `json:"weather"`
	Transportation string `json:"transportation"`
	Invitation     string `json:"invitation"`
	ChatStatus     string `json:"chat_status"`
	EmailStatus    string `json:"email_status"`
	Phase          Phase  `json:"phase"`
}

// NewRecord returns an empty record at the start phase.
func NewRecord() *Record {
	return &Record{Phase: PhaseStart}
}

// Reset clears every field for a fresh session.
func (r *Record) Reset() {
	*r = Record{Phase: PhaseStart}
}

// SchedulingDone reports whether the planning phase has been marked complete.
func (r *Record) SchedulingDone() bool {
	return r.Phase == PhaseSchedulingComplete || r.Phase == PhaseMessagingComplete
}

// Digest renders the non-empty findings as a readable summary, used at the
// human checkpoint and in the final session report.
func (r *Record) Digest() string {
	var b strings.Builder
	b.WriteString("EVENT PLAN\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")
	if r.Request != "" {
		fmt.Fprintf(&b, "Request: %s\n", r.Request)
	}
	section := func(label, val string) {
		if val == "" {
			return
		}
		fmt.Fprintf(&b, "\n[%s]\n%s\n", label, val)
	}
	section("Schedule", r.Schedule)
	section("Budget", r.Budget)
	section("Health & Safety", r.Safety)
	section("Weather", r.Weather)
	section("Transportation", r.Transportation)
	section("Invitation", r.Invitation)
	section("Chat Delivery", r.ChatStatus)
	section("Email Delivery", r.EmailStatus)
	return b.String()
}

// Empty reports whether no finding has been recorded yet.
func (r *Record) Empty() bool {
	return r.Request == "" && r.Schedule == "" && r.Budget == "" && r.Safety == "" &&
		r.Weather == "" && r.Transportation == "" && r.Invitation == "" &&
		r.ChatStatus == "" && r.EmailStatus == ""
}
