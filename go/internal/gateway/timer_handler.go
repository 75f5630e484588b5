package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/retroboard/go/internal/board"
	"github.com/mcdev12/retroboard/go/internal/models"
)

// ClientTokenHeader carries the caller's client token when the body omits it.
const ClientTokenHeader = "X-Client-Token"

const (
	ActionStart       = "start"
	ActionPause       = "pause"
	ActionResume      = "resume"
	ActionStop        = "stop"
	ActionSetDuration = "set_duration"
)

// TimerController is the set of coordinator operations the gateway exposes.
type TimerController interface {
	Start(ctx context.Context, sessionID int64, clientToken string, duration int) (models.TimerSnapshot, error)
	Pause(ctx context.Context, sessionID int64, clientToken string) (models.TimerSnapshot, error)
	Resume(ctx context.Context, sessionID int64, clientToken string) (models.TimerSnapshot, error)
	Stop(ctx context.Context, sessionID int64, clientToken string) (models.TimerSnapshot, error)
	SetDuration(ctx context.Context, sessionID int64, clientToken string, duration int) (models.TimerSnapshot, error)
	GetState(ctx context.Context, sessionID int64) (models.TimerSnapshot, error)
}

// TimerRequest is the body of POST /api/retrospectives/{session}/timer.
type TimerRequest struct {
	Action      string `json:"action"`
	Duration    int    `json:"duration"`
	ClientToken string `json:"client_token"`
}

type TimerHandler struct {
	sessions        SessionResolver
	timers          TimerController
	defaultDuration int
}

// NewTimerHandler creates the timer handler. defaultDuration (seconds) is used
// by start when neither the request nor the stored timer names a duration.
func NewTimerHandler(sessions SessionResolver, timers TimerController, defaultDuration int) *TimerHandler {
	return &TimerHandler{
		sessions:        sessions,
		timers:          timers,
		defaultDuration: defaultDuration,
	}
}

func (h *TimerHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.ResolveSession(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	snap, err := h.timers.GetState(r.Context(), session.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, snap, http.StatusOK)
}

func (h *TimerHandler) Control(w http.ResponseWriter, r *http.Request) {
	var req TimerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	token := strings.TrimSpace(req.ClientToken)
	if token == "" {
		token = strings.TrimSpace(r.Header.Get(ClientTokenHeader))
	}

	session, err := h.sessions.ResolveSession(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	ctx := r.Context()
	var snap models.TimerSnapshot
	switch req.Action {
	case ActionStart:
		duration, derr := h.startDuration(ctx, session.ID, req.Duration)
		if derr != nil {
			respondErr(w, r, derr)
			return
		}
		snap, err = h.timers.Start(ctx, session.ID, token, duration)
	case ActionPause:
		snap, err = h.timers.Pause(ctx, session.ID, token)
	case ActionResume:
		snap, err = h.timers.Resume(ctx, session.ID, token)
	case ActionStop:
		snap, err = h.timers.Stop(ctx, session.ID, token)
	case ActionSetDuration:
		snap, err = h.timers.SetDuration(ctx, session.ID, token, req.Duration)
	default:
		err = fmt.Errorf("%w: unknown timer action %q", board.ErrInvalidArgument, req.Action)
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, snap, http.StatusOK)
}

func (h *TimerHandler) startDuration(ctx context.Context, sessionID int64, requested int) (int, error) {
	if requested != 0 {
		return requested, nil
	}
	current, err := h.timers.GetState(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if current.Duration > 0 {
		return current.Duration, nil
	}
	return h.defaultDuration, nil
}
