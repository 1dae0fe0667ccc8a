package agent

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/planora/planora/internal/capability"
	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/decision"
	"github.com/planora/planora/internal/operator"
	"github.com/planora/planora/internal/plan"
	"github.com/planora/planora/internal/session"
)

var testLogger = log.New(io.Discard, "", 0)

func testRegistry(t *testing.T) *capability.Registry {
	t.Helper()
	reg, err := capability.NewRegistry(capability.DefaultCards(), "", nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

// stubDecider returns scripted decisions, failing transiently first when
// flaky is set.
type stubDecider struct {
	failures  int
	decisions []decision.Decision
	calls     int
}

func (s *stubDecider) Decide(ctx context.Context, log *conversation.Log, cards []capability.Card, directive string) (decision.Decision, error) {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return decision.Decision{}, decision.ErrUnavailable
	}
	if len(s.decisions) == 0 {
		return decision.Decision{Narrative: "done"}, nil
	}
	d := s.decisions[0]
	if len(s.decisions) > 1 {
		s.decisions = s.decisions[1:]
	}
	return d, nil
}

func TestOrchestratorClassification(t *testing.T) {
	o := NewOrchestrator(nil, testLogger)

	st := session.NewState("Plan a birthday party at home on June 30th")
	if err := o.Step(context.Background(), st); err != nil {
		t.Fatalf("step: %v", err)
	}
	if !st.Planning {
		t.Fatalf("planning request not recognized")
	}

	st = session.NewState("Send a thank-you note to my colleagues")
	if err := o.Step(context.Background(), st); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.Planning {
		t.Fatalf("messaging request misclassified as planning")
	}
	turn, _ := st.Conversation.Last()
	if !strings.Contains(turn.Text, "communication agent") {
		t.Fatalf("expected communication hand-off, got %q", turn.Text)
	}
}

func TestSchedulerRetriesTransientFailures(t *testing.T) {
	d := &stubDecider{
		failures: 2,
		decisions: []decision.Decision{{
			Narrative: "gathering",
			ToolCalls: []conversation.ToolCall{{Name: capability.Calendar, Arguments: map[string]any{"query": "x"}}},
		}},
	}
	s := NewScheduler(d, testRegistry(t), 3, 1, testLogger)

	st := session.NewState("Plan a party")
	if err := s.Step(context.Background(), st); err != nil {
		t.Fatalf("step should survive transient failures: %v", err)
	}
	if d.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", d.calls)
	}
	if len(st.Conversation.PendingToolCalls()) != 1 {
		t.Fatalf("expected one pending call")
	}
}

func TestSchedulerFailsAfterRetryBudget(t *testing.T) {
	d := &stubDecider{failures: 10}
	s := NewScheduler(d, testRegistry(t), 3, 1, testLogger)

	st := session.NewState("Plan a party")
	err := s.Step(context.Background(), st)
	if !errors.Is(err, decision.ErrUnavailable) {
		t.Fatalf("expected wrapped ErrUnavailable, got %v", err)
	}
	if d.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", d.calls)
	}
}

func TestSchedulerDropsInvalidCalls(t *testing.T) {
	d := &stubDecider{decisions: []decision.Decision{{
		ToolCalls: []conversation.ToolCall{
			{Name: "teleport"},
			{Name: capability.ChatMessage}, // messaging capability, wrong group
			{Name: capability.Calendar},
		},
	}}}
	s := NewScheduler(d, testRegistry(t), 1, 1, testLogger)

	st := session.NewState("Plan a party")
	if err := s.Step(context.Background(), st); err != nil {
		t.Fatalf("step: %v", err)
	}
	pending := st.Conversation.PendingToolCalls()
	if len(pending) != 1 || pending[0].Name != capability.Calendar {
		t.Fatalf("invalid calls should be dropped, got %v", pending)
	}
}

func TestSchedulerCompletionMarksPhase(t *testing.T) {
	d := &stubDecider{decisions: []decision.Decision{{Narrative: "Scheduling complete."}}}
	s := NewScheduler(d, testRegistry(t), 1, 1, testLogger)

	st := session.NewState("Plan a party")
	if err := s.Step(context.Background(), st); err != nil {
		t.Fatalf("step: %v", err)
	}
	if !st.Plan.SchedulingDone() {
		t.Fatalf("completion should mark the plan phase")
	}
}

func TestSchedulerGuardsCompletedSessions(t *testing.T) {
	d := &stubDecider{}
	s := NewScheduler(d, testRegistry(t), 1, 1, testLogger)

	st := session.NewState("Plan a party")
	st.Plan.Phase = plan.PhaseSchedulingComplete
	if err := s.Step(context.Background(), st); err != nil {
		t.Fatalf("step: %v", err)
	}
	if d.calls != 0 {
		t.Fatalf("completed session should not re-decide")
	}
	turn, _ := st.Conversation.Last()
	if !strings.Contains(turn.Text, "already completed") {
		t.Fatalf("expected guard message, got %q", turn.Text)
	}
}

func TestCheckpointSuspendsWithoutOperator(t *testing.T) {
	c := NewCheckpoint(nil, testLogger)
	st := session.NewState("Plan a party")
	st.Plan.Schedule = "June 30th"

	err := c.Step(context.Background(), st)
	if !errors.Is(err, ErrAwaitOperator) {
		t.Fatalf("expected ErrAwaitOperator, got %v", err)
	}
	if st.Status != session.StatusAwaitingOperator || st.PendingPrompt == "" {
		t.Fatalf("session should be suspended with a prompt")
	}
}

func TestCheckpointAppliesOperatorReply(t *testing.T) {
	op := &operator.Scripted{Replies: []string{"move it to July 4th"}}
	c := NewCheckpoint(op, testLogger)
	st := session.NewState("Plan a party")
	st.Plan.Phase = plan.PhaseSchedulingComplete

	if err := c.Step(context.Background(), st); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.LastVerdict != string(operator.VerdictRevise) {
		t.Fatalf("expected revise verdict, got %s", st.LastVerdict)
	}
	if st.RevisionHint != "move it to July 4th" {
		t.Fatalf("revision hint not captured: %q", st.RevisionHint)
	}
	if st.Plan.SchedulingDone() {
		t.Fatalf("revision should reopen the plan phase")
	}
	turn, _ := st.Conversation.Last()
	if turn.Kind != conversation.KindUserInput {
		t.Fatalf("operator reply should be logged as user input")
	}
}

func TestCheckpointCancellation(t *testing.T) {
	op := &operator.Scripted{} // empty script cancels immediately
	c := NewCheckpoint(op, testLogger)
	st := session.NewState("Plan a party")

	if err := c.Step(context.Background(), st); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.Status != session.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", st.Status)
	}
}

func TestCommunicationCompletionMarksPhase(t *testing.T) {
	d := &stubDecider{decisions: []decision.Decision{{Narrative: "All sent."}}}
	c := NewCommunication(d, testRegistry(t), 1, 1, testLogger)

	st := session.NewState("Plan a party")
	if err := c.Step(context.Background(), st); err != nil {
		t.Fatalf("step: %v", err)
	}
	if st.Plan.Phase != plan.PhaseMessagingComplete {
		t.Fatalf("completion should mark messaging phase, got %s", st.Plan.Phase)
	}
}
