package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/retroboard/go/internal/board"
	"github.com/mcdev12/retroboard/go/internal/models"
)

// BoardService is the board application surface used by the HTTP layer.
type BoardService interface {
	SessionResolver
	Categories() []string
	CreateSession(ctx context.Context, req board.CreateSessionRequest) (*models.Session, error)
	ListRecentSessions(ctx context.Context) ([]*models.Session, error)
	DeactivateSession(ctx context.Context, id int64) error

	CreateFeedback(ctx context.Context, req board.CreateFeedbackRequest) (*models.FeedbackItem, error)
	ListFeedback(ctx context.Context, sessionID int64) ([]*models.FeedbackItem, error)
	UpdateFeedback(ctx context.Context, id int64, req board.UpdateFeedbackRequest) (*models.FeedbackItem, error)
	DeleteFeedback(ctx context.Context, id int64) error

	Vote(ctx context.Context, feedbackID int64, clientToken string) (*board.VoteResult, error)
	Unvote(ctx context.Context, feedbackID int64, clientToken string) (*board.VoteResult, error)
	VotedItems(ctx context.Context, sessionID int64, clientToken string) ([]int64, error)
}

// VoteRequest is the body of POST and DELETE /api/votes.
type VoteRequest struct {
	FeedbackItemID int64  `json:"feedback_item_id"`
	DeviceID       string `json:"device_id"`
}

type BoardHandler struct {
	app BoardService
}

func NewBoardHandler(app BoardService) *BoardHandler {
	return &BoardHandler{app: app}
}

func (h *BoardHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string][]string{"categories": h.app.Categories()}, http.StatusOK)
}

func (h *BoardHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req board.CreateSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			respondErr(w, r, err)
			return
		}
	}

	session, err := h.app.CreateSession(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, session, http.StatusCreated)
}

func (h *BoardHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.app.ListRecentSessions(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*models.Session{}
	}
	respondJSON(w, sessions, http.StatusOK)
}

func (h *BoardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.app.ResolveSession(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, session, http.StatusOK)
}

func (h *BoardHandler) DeactivateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.app.ResolveSession(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.app.DeactivateSession(r.Context(), session.ID); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	session, err := h.app.ResolveSession(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	items, err := h.app.ListFeedback(r.Context(), session.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if items == nil {
		items = []*models.FeedbackItem{}
	}
	respondJSON(w, items, http.StatusOK)
}

func (h *BoardHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req board.CreateFeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	item, err := h.app.CreateFeedback(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, item, http.StatusCreated)
}

func (h *BoardHandler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req board.UpdateFeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	item, err := h.app.UpdateFeedback(r.Context(), id, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, item, http.StatusOK)
}

func (h *BoardHandler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.app.DeleteFeedback(r.Context(), id); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) Vote(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeVote(w, r)
	if !ok {
		return
	}
	result, err := h.app.Vote(r.Context(), req.FeedbackItemID, req.DeviceID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, result, http.StatusCreated)
}

func (h *BoardHandler) Unvote(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeVote(w, r)
	if !ok {
		return
	}
	result, err := h.app.Unvote(r.Context(), req.FeedbackItemID, req.DeviceID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, result, http.StatusOK)
}

func (h *BoardHandler) VotedItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	deviceID := q.Get("device_id")
	if deviceID == "" {
		deviceID = r.Header.Get(ClientTokenHeader)
	}

	session, err := h.app.ResolveSession(r.Context(), q.Get("retrospective_id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	ids, err := h.app.VotedItems(r.Context(), session.ID, deviceID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	respondJSON(w, map[string][]int64{"voted_items": ids}, http.StatusOK)
}

func (h *BoardHandler) decodeVote(w http.ResponseWriter, r *http.Request) (VoteRequest, bool) {
	var req VoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErr(w, r, err)
		return req, false
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		req.DeviceID = r.Header.Get(ClientTokenHeader)
	}
	if req.FeedbackItemID <= 0 {
		respondErr(w, r, fmt.Errorf("%w: feedback_item_id is required", board.ErrInvalidArgument))
		return req, false
	}
	return req, true
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: malformed %s", board.ErrInvalidArgument, name)
	}
	return id, nil
}
