package conversation

import (
	"encoding/json"
	"time"
)

// Kind discriminates the Turn variants.
type Kind string

const (
	KindUserInput   Kind = "user_input"
	KindAgentOutput Kind = "agent_output"
	KindToolResult  Kind = "tool_result"
)

// ToolCall is a request for a named capability with structured arguments.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Turn is one immutable entry in the conversation log. Exactly one variant
// applies per Kind: Text for user input, Text+ToolCalls for agent output,
// Tool+Text for tool results.
type Turn struct {
	Kind      Kind       `json:"kind"`
	Actor     string     `json:"actor,omitempty"`
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Tool      string     `json:"tool,omitempty"`
	IsError   bool       `json:"is_error,omitempty"`
	Time      time.Time  `json:"time"`
}

// UserInput builds a user-authored turn.
func UserInput(text string) Turn {
	return Turn{Kind: KindUserInput, Text: text, Time: time.Now()}
}

// AgentOutput builds an agent turn carrying zero or more pending tool calls.
func AgentOutput(actor, text string, calls ...ToolCall) Turn {
	return Turn{Kind: KindAgentOutput, Actor: actor, Text: text, ToolCalls: calls, Time: time.Now()}
}

// ToolResult builds a successful capability result turn.
func ToolResult(tool, text string) Turn {
	return Turn{Kind: KindToolResult, Tool: tool, Text: text, Time: time.Now()}
}

// ToolError builds a result turn carrying a capability failure. The error text
// takes the place of the normal result so downstream decisions see it.
func ToolError(tool, text string) Turn {
	return Turn{Kind: KindToolResult, Tool: tool, Text: text, IsError: true, Time: time.Now()}
}

// Log is an append-only ordered sequence of turns. Turns are never edited or
// removed once appended; all inspection goes through named accessors.
type Log struct {
	turns []Turn
}

// NewLog returns an empty conversation log.
func NewLog() *Log { return &Log{} }

// Append adds a turn to the end of the log. It never fails and never touches
// prior turns.
func (l *Log) Append(t Turn) {
	l.turns = append(l.turns, t)
}

// Len returns the number of turns recorded so far.
func (l *Log) Len() int { return len(l.turns) }

// Turns returns a copy of the recorded turns in order.
func (l *Log) Turns() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Last returns the most recent turn, if any.
func (l *Log) Last() (Turn, bool) {
	if len(l.turns) == 0 {
		return Turn{}, false
	}
	return l.turns[len(l.turns)-1], true
}

// LastWhere scans from the end and returns the most recent turn matching pred.
func (l *Log) LastWhere(pred func(Turn) bool) (Turn, bool) {
	for i := len(l.turns) - 1; i >= 0; i-- {
		if pred(l.turns[i]) {
			return l.turns[i], true
		}
	}
	return Turn{}, false
}

// LastOfKind returns the most recent turn of the given kind.
func (l *Log) LastOfKind(k Kind) (Turn, bool) {
	return l.LastWhere(func(t Turn) bool { return t.Kind == k })
}

// CountOfKind returns how many turns of the given kind have been recorded.
func (l *Log) CountOfKind(k Kind) int {
	n := 0
	for _, t := range l.turns {
		if t.Kind == k {
			n++
		}
	}
	return n
}

// PendingToolCalls returns the calls of the most recent agent output that do
// not yet have a matching tool result appended after it. An empty result means
// the latest agent output either carried no calls or all of them resolved.
func (l *Log) PendingToolCalls() []ToolCall {
	idx := -1
	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].Kind == KindAgentOutput {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	resolved := make(map[string]int)
	for _, t := range l.turns[idx+1:] {
		if t.Kind == KindToolResult {
			resolved[t.Tool]++
		}
	}
	var pending []ToolCall
	for _, call := range l.turns[idx].ToolCalls {
		if resolved[call.Name] > 0 {
			resolved[call.Name]--
			continue
		}
		pending = append(pending, call)
	}
	return pending
}

// HasResult reports whether any tool result for the named capability exists in
// the log.
func (l *Log) HasResult(tool string) bool {
	for _, t := range l.turns {
		if t.Kind == KindToolResult && t.Tool == tool {
			return true
		}
	}
	return false
}

// Validate checks referential integrity: every tool result must be preceded by
// an agent output naming that capability in its pending calls.
func (l *Log) Validate() error {
	announced := make(map[string]int)
	for _, t := range l.turns {
		switch t.Kind {
		case KindAgentOutput:
			for _, call := range t.ToolCalls {
				announced[call.Name]++
			}
		case KindToolResult:
			if announced[t.Tool] == 0 {
				return &IntegrityError{Tool: t.Tool}
			}
			announced[t.Tool]--
		}
	}
	return nil
}

// IntegrityError reports a tool result with no matching announced call.
type IntegrityError struct {
	Tool string
}

func (e *IntegrityError) Error() string {
	return "conversation: tool result for " + e.Tool + " without a preceding agent call"
}

// MarshalJSON serializes the log as a plain turn array.
func (l *Log) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.turns)
}

// UnmarshalJSON restores the log from a turn array.
func (l *Log) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &l.turns)
}
