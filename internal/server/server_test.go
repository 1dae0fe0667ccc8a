package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/planora/planora/config"
	"github.com/planora/planora/internal/agent"
	"github.com/planora/planora/internal/capability"
	"github.com/planora/planora/internal/decision"
	"github.com/planora/planora/internal/route"
	"github.com/planora/planora/internal/runner"
	"github.com/planora/planora/internal/session"
	"github.com/planora/planora/internal/toolkit"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("operator-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cfg := &config.Config{}
	cfg.Server.JWTSecret = "test-secret"
	cfg.Server.OperatorPasswordHash = string(hash)
	cfg.Server.TokenTTL = time.Hour

	reg, err := capability.NewRegistry(capability.DefaultCards(), "", nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	quiet := log.New(io.Discard, "", 0)
	decider := decision.NewRuleDecider()
	r := runner.New(runner.Deps{
		Orchestrator:  agent.NewOrchestrator(nil, quiet),
		Scheduler:     agent.NewScheduler(decider, reg, 3, 1, quiet),
		Checkpoint:    agent.NewCheckpoint(nil, quiet),
		Communication: agent.NewCommunication(decider, reg, 3, 1, quiet),
		Tools:         toolkit.New(toolkit.WithSeed(3)),
		Store:         session.NewMemoryStore(0),
		Policy:        route.NewPolicy(3),
		Logger:        quiet,
	})

	e, err := New(cfg, r).Echo(nil)
	if err != nil {
		t.Fatalf("echo: %v", err)
	}
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/api/auth/token", "", TokenRequest{Password: "operator-pass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return resp.Token
}

func TestTokenRejectsBadPassword(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodPost, "/api/auth/token", "", TokenRequest{Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionsRequireAuth(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodPost, "/api/sessions", "", CreateSessionRequest{Request: "Plan a party"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	e := newTestServer(t)
	token := login(t, e)

	rec := doJSON(t, e, http.MethodPost, "/api/sessions", token,
		CreateSessionRequest{Request: "Plan a birthday party at home on June 30th for 20 people"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != session.StatusAwaitingOperator {
		t.Fatalf("session should suspend for review, got %s", created.Status)
	}
	if created.PendingPrompt == "" {
		t.Fatalf("suspended session should expose the review prompt")
	}
	if created.Plan.ChatStatus != "" || created.Plan.EmailStatus != "" {
		t.Fatalf("nothing may be sent before approval")
	}

	rec = doJSON(t, e, http.MethodGet, "/api/sessions/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/api/sessions/"+created.ID+"/decision", token,
		DecisionRequest{Reply: "proceed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("decision: %d %s", rec.Code, rec.Body.String())
	}
	var approved SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &approved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if approved.Status != session.StatusDone {
		t.Fatalf("expected done after approval, got %s (%s)", approved.Status, approved.FailureReason)
	}
	if approved.Plan.ChatStatus == "" {
		t.Fatalf("approved session should have sent invitations")
	}

	// A finished session no longer accepts decisions.
	rec = doJSON(t, e, http.MethodPost, "/api/sessions/"+created.ID+"/decision", token,
		DecisionRequest{Reply: "proceed"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a finished session, got %d", rec.Code)
	}
}

func TestCancelRemovesSession(t *testing.T) {
	e := newTestServer(t)
	token := login(t, e)

	rec := doJSON(t, e, http.MethodPost, "/api/sessions", token,
		CreateSessionRequest{Request: "Plan a birthday party at home"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created SessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, e, http.MethodDelete, "/api/sessions/"+created.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, e, http.MethodGet, "/api/sessions/"+created.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cancelled session should be gone, got %d", rec.Code)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	e := newTestServer(t)
	token := login(t, e)
	rec := doJSON(t, e, http.MethodGet, "/api/sessions/does-not-exist", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
