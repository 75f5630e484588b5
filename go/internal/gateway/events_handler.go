package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/retroboard/go/internal/board"
	"github.com/mcdev12/retroboard/go/internal/eventlog"
	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/mcdev12/retroboard/go/internal/metrics"
	"github.com/mcdev12/retroboard/go/internal/models"
)

// SessionResolver turns a path reference (numeric id or share token) into an active session.
type SessionResolver interface {
	ResolveSession(ctx context.Context, ref string) (*models.Session, error)
}

// EventReader serves cursor pages from the event log.
type EventReader interface {
	Read(sessionID int64, cursor int64) eventlog.Page
}

// EventsResponse is the polling endpoint body.
type EventsResponse struct {
	Events          []events.Event `json:"events"`
	LatestTimestamp int64          `json:"latest_timestamp"`
	HasUpdates      bool           `json:"has_updates"`
}

// EventsHandler serves GET /api/events/{session}?since=N.
type EventsHandler struct {
	sessions SessionResolver
	log      EventReader
}

func NewEventsHandler(sessions SessionResolver, log EventReader) *EventsHandler {
	return &EventsHandler{sessions: sessions, log: log}
}

func (h *EventsHandler) Poll(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		metrics.PollRequestsTotal.WithLabelValues("error").Inc()
		respondErr(w, r, err)
		return
	}

	session, err := h.sessions.ResolveSession(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		metrics.PollRequestsTotal.WithLabelValues("error").Inc()
		respondErr(w, r, err)
		return
	}

	page := h.log.Read(session.ID, since)
	resp := EventsResponse{
		Events:          page.Events,
		LatestTimestamp: page.Latest,
		HasUpdates:      len(page.Events) > 0,
	}
	if resp.HasUpdates {
		metrics.PollRequestsTotal.WithLabelValues("updates").Inc()
	} else {
		metrics.PollRequestsTotal.WithLabelValues("empty").Inc()
	}
	respondJSON(w, resp, http.StatusOK)
}

func parseSince(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || since < 0 {
		return 0, fmt.Errorf("%w: since must be a non-negative integer", board.ErrInvalidArgument)
	}
	return since, nil
}
