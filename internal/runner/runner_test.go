package runner

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/planora/planora/internal/agent"
	"github.com/planora/planora/internal/capability"
	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/decision"
	"github.com/planora/planora/internal/operator"
	"github.com/planora/planora/internal/plan"
	"github.com/planora/planora/internal/route"
	"github.com/planora/planora/internal/session"
	"github.com/planora/planora/internal/toolkit"
)

var testLogger = log.New(io.Discard, "", 0)

func newTestRunner(t *testing.T, op operator.Interface) (*Runner, *session.MemoryStore) {
	t.Helper()
	reg, err := capability.NewRegistry(capability.DefaultCards(), "", nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	decider := decision.NewRuleDecider()
	store := session.NewMemoryStore(0)
	r := New(Deps{
		Orchestrator:  agent.NewOrchestrator(nil, testLogger),
		Scheduler:     agent.NewScheduler(decider, reg, 3, 1, testLogger),
		Checkpoint:    agent.NewCheckpoint(op, testLogger),
		Communication: agent.NewCommunication(decider, reg, 3, 1, testLogger),
		Tools:         toolkit.New(toolkit.WithSeed(7)),
		Store:         store,
		Policy:        route.NewPolicy(3),
		Logger:        testLogger,
	})
	return r, store
}

func TestHomeBirthdayApprovedEndToEnd(t *testing.T) {
	op := &operator.Scripted{Replies: []string{"proceed"}}
	r, _ := newTestRunner(t, op)

	st, err := r.Start(context.Background(), "Plan a birthday party at home on June 30th with $500 budget for 20 people")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Status != session.StatusDone {
		t.Fatalf("expected done, got %s (%s)", st.Status, st.FailureReason)
	}
	if st.Plan.Phase != plan.PhaseMessagingComplete {
		t.Fatalf("expected messaging complete, got %s", st.Plan.Phase)
	}
	for name, val := range map[string]string{
		"schedule":   st.Plan.Schedule,
		"budget":     st.Plan.Budget,
		"safety":     st.Plan.Safety,
		"invitation": st.Plan.Invitation,
		"chat":       st.Plan.ChatStatus,
	} {
		if val == "" {
			t.Fatalf("missing %s in plan record", name)
		}
	}
	if st.Plan.Weather != "" || st.Plan.Transportation != "" {
		t.Fatalf("home event should not gather weather or traffic")
	}
	if st.Plan.EmailStatus != "" {
		t.Fatalf("informal event should not email")
	}
	if err := st.Conversation.Validate(); err != nil {
		t.Fatalf("conversation integrity: %v", err)
	}
	if len(op.Seen) != 1 || !strings.Contains(op.Seen[0], "EVENT PLAN") {
		t.Fatalf("operator should have reviewed the plan digest once")
	}
}

func TestRevisionThenApproval(t *testing.T) {
	op := &operator.Scripted{Replies: []string{"move the date to July 4th", "proceed"}}
	r, _ := newTestRunner(t, op)

	st, err := r.Start(context.Background(), "Plan a birthday party at home on June 30th for 20 people")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Status != session.StatusDone {
		t.Fatalf("expected done, got %s (%s)", st.Status, st.FailureReason)
	}
	if len(op.Seen) != 2 {
		t.Fatalf("expected two reviews, got %d", len(op.Seen))
	}
	if st.Conversation.CountOfKind(conversation.KindUserInput) != 3 {
		t.Fatalf("expected request plus two operator replies in the log")
	}
	if st.Plan.ChatStatus == "" {
		t.Fatalf("approved plan should have been sent")
	}
}

func TestCancellationSendsNothing(t *testing.T) {
	op := &operator.Scripted{Replies: []string{"cancel"}}
	r, store := newTestRunner(t, op)

	st, err := r.Start(context.Background(), "Plan a birthday party at home for 20 people")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Status != session.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", st.Status)
	}
	if st.Plan.ChatStatus != "" || st.Plan.EmailStatus != "" {
		t.Fatalf("cancelled session must not send")
	}
	if _, err := store.Load(context.Background(), st.ID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("cancelled session should be removed, got %v", err)
	}
}

func TestMessagingRequestGatedBeforeSend(t *testing.T) {
	op := &operator.Scripted{Replies: []string{"proceed"}}
	r, _ := newTestRunner(t, op)

	st, err := r.Start(context.Background(), "Send a thank-you note to my colleagues")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Status != session.StatusDone {
		t.Fatalf("expected done, got %s (%s)", st.Status, st.FailureReason)
	}
	if len(op.Seen) != 1 {
		t.Fatalf("messaging request must be reviewed exactly once, got %d", len(op.Seen))
	}
	if st.Plan.EmailStatus == "" || st.Plan.ChatStatus != "" {
		t.Fatalf("formal audience should go out by email only")
	}
	if st.Plan.Schedule != "" || st.Plan.Budget != "" {
		t.Fatalf("no planning capability should run for a messaging request")
	}

	approved, sent := -1, -1
	for i, tr := range st.Conversation.Turns() {
		switch {
		case tr.Kind == conversation.KindUserInput && tr.Text == "proceed":
			approved = i
		case tr.Kind == conversation.KindToolResult && tr.Tool == capability.EmailSend && sent < 0:
			sent = i
		}
	}
	if approved < 0 || sent < approved {
		t.Fatalf("send must follow the approval turn (approved=%d sent=%d)", approved, sent)
	}
}

func TestMessagingRequestRevisionShapesMessage(t *testing.T) {
	op := &operator.Scripted{Replies: []string{"make it warmer", "proceed"}}
	r, _ := newTestRunner(t, op)

	st, err := r.Start(context.Background(), "Send a thank-you note to my colleagues")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Status != session.StatusDone {
		t.Fatalf("expected done, got %s (%s)", st.Status, st.FailureReason)
	}
	if len(op.Seen) != 2 {
		t.Fatalf("revision should trigger a second review, got %d", len(op.Seen))
	}
	if !strings.Contains(op.Seen[1], "make it warmer") {
		t.Fatalf("second review should surface the noted change: %q", op.Seen[1])
	}
	turn, ok := st.Conversation.LastWhere(func(tr conversation.Turn) bool {
		return tr.Kind == conversation.KindToolResult && tr.Tool == capability.EmailSend
	})
	if !ok || !strings.Contains(turn.Text, "make it warmer") {
		t.Fatalf("outgoing message should carry the revision")
	}
}

func TestMessagingRequestCancelSendsNothing(t *testing.T) {
	op := &operator.Scripted{Replies: []string{"cancel"}}
	r, _ := newTestRunner(t, op)

	st, err := r.Start(context.Background(), "Send a thank-you note to my colleagues")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Status != session.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", st.Status)
	}
	if st.Conversation.CountOfKind(conversation.KindToolResult) != 0 {
		t.Fatalf("cancelled messaging request must not send")
	}
}

func TestSuspendAndResume(t *testing.T) {
	r, store := newTestRunner(t, nil) // no operator attached

	st, err := r.Start(context.Background(), "Plan a birthday party at home for 20 people")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Status != session.StatusAwaitingOperator {
		t.Fatalf("expected suspension, got %s", st.Status)
	}
	if st.PendingPrompt == "" {
		t.Fatalf("suspended session should carry the review prompt")
	}
	if _, err := store.Load(context.Background(), st.ID); err != nil {
		t.Fatalf("suspended session should be persisted: %v", err)
	}

	resumed, err := r.Resume(context.Background(), st.ID, "proceed")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Status != session.StatusDone {
		t.Fatalf("expected done after approval, got %s (%s)", resumed.Status, resumed.FailureReason)
	}
	if resumed.Plan.ChatStatus == "" {
		t.Fatalf("approved session should have sent invitations")
	}
}

func TestResumeRejectsActiveSession(t *testing.T) {
	op := &operator.Scripted{Replies: []string{"proceed"}}
	r, _ := newTestRunner(t, op)

	st, err := r.Start(context.Background(), "Plan a birthday party at home")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := r.Resume(context.Background(), st.ID, "proceed"); !errors.Is(err, ErrNotSuspended) {
		t.Fatalf("expected ErrNotSuspended, got %v", err)
	}
}

func TestRevisionLimitTerminates(t *testing.T) {
	op := &operator.Scripted{Replies: []string{
		"change the food", "change the music", "change the venue", "change it all again",
	}}
	r, _ := newTestRunner(t, op)

	st, err := r.Start(context.Background(), "Plan a birthday party at home for 20 people")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Status != session.StatusFailed {
		t.Fatalf("expected failure after revision limit, got %s", st.Status)
	}
	if !strings.Contains(st.FailureReason, "revision limit") {
		t.Fatalf("unexpected failure reason: %s", st.FailureReason)
	}
	if st.Plan.ChatStatus != "" || st.Plan.EmailStatus != "" {
		t.Fatalf("nothing may be sent without approval")
	}
}

// failingExecutor breaks one capability and delegates the rest.
type failingExecutor struct {
	inner toolkit.Executor
	bad   string
}

func (f *failingExecutor) Execute(ctx context.Context, rec *plan.Record, call conversation.ToolCall) (string, error) {
	if call.Name == f.bad {
		return "", &toolkit.Error{Capability: call.Name, Err: errors.New("backend offline")}
	}
	return f.inner.Execute(ctx, rec, call)
}

func TestCapabilityFailureIsRecordedNotFatal(t *testing.T) {
	op := &operator.Scripted{Replies: []string{"proceed"}}
	r, _ := newTestRunner(t, op)
	r.tools = &failingExecutor{inner: toolkit.New(toolkit.WithSeed(7)), bad: capability.Finance}

	st, err := r.Start(context.Background(), "Plan a birthday party at home with $500 budget for 20 people")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Status != session.StatusDone {
		t.Fatalf("expected done despite capability failure, got %s (%s)", st.Status, st.FailureReason)
	}
	turn, ok := st.Conversation.LastWhere(func(tr conversation.Turn) bool {
		return tr.Kind == conversation.KindToolResult && tr.Tool == capability.Finance
	})
	if !ok || !turn.IsError {
		t.Fatalf("capability failure should be logged as an error result")
	}
	if err := st.Conversation.Validate(); err != nil {
		t.Fatalf("conversation integrity: %v", err)
	}
}
