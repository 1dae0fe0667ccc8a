package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/planora/planora/internal/conversation"
	"github.com/planora/planora/internal/plan"
	"github.com/planora/planora/internal/runner"
	"github.com/planora/planora/internal/session"
)

// SessionsHandler exposes the planning lifecycle: create, inspect, decide,
// cancel.
type SessionsHandler struct {
	Runner *runner.Runner
	Logger *log.Logger
}

// CreateSessionRequest opens a new planning session.
type CreateSessionRequest struct {
	Request string `json:"request"`
}

// DecisionRequest carries an operator reply for a suspended session.
type DecisionRequest struct {
	Reply string `json:"reply"`
}

// SessionView is the API shape of a session.
type SessionView struct {
	ID            string              `json:"id"`
	Status        session.Status      `json:"status"`
	Active        session.Component   `json:"active"`
	Plan          *plan.Record        `json:"plan"`
	Conversation  []conversation.Turn `json:"conversation"`
	PendingPrompt string              `json:"pending_prompt,omitempty"`
	FailureReason string              `json:"failure_reason,omitempty"`
}

func viewOf(st *session.State) SessionView {
	return SessionView{
		ID:            st.ID,
		Status:        st.Status,
		Active:        st.Active,
		Plan:          st.Plan,
		Conversation:  st.Conversation.Turns(),
		PendingPrompt: st.PendingPrompt,
		FailureReason: st.FailureReason,
	}
}

func (h *SessionsHandler) Register(g *echo.Group) {
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.POST("/:id/decision", h.decide)
	g.DELETE("/:id", h.cancel)
}

func (h *SessionsHandler) create(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Request) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "request text required")
	}

	st, err := h.Runner.Start(c.Request().Context(), req.Request)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, viewOf(st))
}

func (h *SessionsHandler) get(c echo.Context) error {
	st, err := h.Runner.Load(c.Request().Context(), c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, viewOf(st))
}

func (h *SessionsHandler) decide(c echo.Context) error {
	var req DecisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Reply) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reply text required")
	}

	st, err := h.Runner.Resume(c.Request().Context(), c.Param("id"), req.Reply)
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if errors.Is(err, runner.ErrNotSuspended) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, viewOf(st))
}

func (h *SessionsHandler) cancel(c echo.Context) error {
	err := h.Runner.Cancel(c.Request().Context(), c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
