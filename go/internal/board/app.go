package board

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/mcdev12/retroboard/go/internal/models"
	"github.com/rs/zerolog/log"
)

// BoardRepository defines what the app layer needs from the repository
type BoardRepository interface {
	CreateSession(ctx context.Context, shareToken, title string, createdAt time.Time) (*models.Session, error)
	GetSession(ctx context.Context, id int64) (*models.Session, error)
	GetSessionByShareToken(ctx context.Context, token string) (*models.Session, error)
	ListActiveSessions(ctx context.Context, limit int) ([]*models.Session, error)
	DeactivateSession(ctx context.Context, id int64) error

	CreateFeedback(ctx context.Context, req CreateFeedbackRequest, now time.Time) (*models.FeedbackItem, error)
	GetFeedback(ctx context.Context, id int64) (*models.FeedbackItem, error)
	ListFeedback(ctx context.Context, sessionID int64) ([]*models.FeedbackItem, error)
	UpdateFeedbackContent(ctx context.Context, id int64, content string, now time.Time) (*models.FeedbackItem, error)
	DeleteFeedback(ctx context.Context, id int64) (*models.FeedbackItem, error)

	AddVote(ctx context.Context, feedbackID int64, clientToken string, now time.Time) (*VoteResult, error)
	RemoveVote(ctx context.Context, feedbackID int64, clientToken string) (*VoteResult, error)
	ListVotedItems(ctx context.Context, sessionID int64, clientToken string) ([]int64, error)
}

// EventAppender receives feedback notifications after successful mutations.
type EventAppender interface {
	Append(sessionID int64, kind events.Kind, payload any) (events.Event, error)
}

// App handles board business logic
type App struct {
	repo       BoardRepository
	events     EventAppender
	clock      clockwork.Clock
	categories []string
}

// NewApp creates a new board App. Empty categories fall back to DefaultCategories.
func NewApp(repo BoardRepository, appender EventAppender, clock clockwork.Clock, categories []string) *App {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:       repo,
		events:     appender,
		clock:      clock,
		categories: categories,
	}
}

// Categories returns the configured board columns in display order
func (a *App) Categories() []string {
	return slices.Clone(a.categories)
}

// CreateSession opens a new board with a fresh share token
func (a *App) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle
	}

	session, err := a.repo.CreateSession(ctx, uuid.NewString(), title, a.now())
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("session_id", session.ID).
		Str("share_token", session.ShareToken).
		Str("title", session.Title).
		Msg("created session")
	return session, nil
}

// ResolveSession looks up an active session by numeric id or share token.
func (a *App) ResolveSession(ctx context.Context, ref string) (*models.Session, error) {
	ref = strings.TrimSpace(ref)

	var (
		session *models.Session
		err     error
	)
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		if id <= 0 {
			return nil, fmt.Errorf("%w: session id %d", ErrInvalidArgument, id)
		}
		session, err = a.repo.GetSession(ctx, id)
	} else if token, perr := uuid.Parse(ref); perr == nil {
		session, err = a.repo.GetSessionByShareToken(ctx, token.String())
	} else {
		return nil, fmt.Errorf("%w: malformed session reference %q", ErrInvalidArgument, ref)
	}
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, fmt.Errorf("session %s is inactive: %w", ref, ErrNotFound)
	}
	return session, nil
}

// GetSession retrieves an active session by id
func (a *App) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	session, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, fmt.Errorf("session %d is inactive: %w", id, ErrNotFound)
	}
	return session, nil
}

// ListRecentSessions returns the newest active sessions
func (a *App) ListRecentSessions(ctx context.Context) ([]*models.Session, error) {
	return a.repo.ListActiveSessions(ctx, RecentSessionsLimit)
}

// DeactivateSession closes a board
func (a *App) DeactivateSession(ctx context.Context, id int64) error {
	if err := a.repo.DeactivateSession(ctx, id); err != nil {
		return err
	}
	log.Info().Int64("session_id", id).Msg("deactivated session")
	return nil
}

// CreateFeedback adds a card to a session with validation
func (a *App) CreateFeedback(ctx context.Context, req CreateFeedbackRequest) (*models.FeedbackItem, error) {
	if err := a.validateCreateFeedbackRequest(&req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if _, err := a.GetSession(ctx, req.SessionID); err != nil {
		return nil, err
	}

	item, err := a.repo.CreateFeedback(ctx, req, a.now())
	if err != nil {
		return nil, err
	}

	voteCount := item.VoteCount
	a.publish(item.SessionID, events.KindFeedbackAdded, events.FeedbackPayload{
		ID:         item.ID,
		Category:   &item.Category,
		Content:    &item.Content,
		AuthorName: item.AuthorName,
		VoteCount:  &voteCount,
	})

	log.Info().
		Int64("session_id", item.SessionID).
		Int64("feedback_id", item.ID).
		Str("category", item.Category).
		Msg("created feedback")
	return item, nil
}

// ListFeedback returns a session's cards, oldest first
func (a *App) ListFeedback(ctx context.Context, sessionID int64) ([]*models.FeedbackItem, error) {
	return a.repo.ListFeedback(ctx, sessionID)
}

// UpdateFeedback replaces a card's content
func (a *App) UpdateFeedback(ctx context.Context, id int64, req UpdateFeedbackRequest) (*models.FeedbackItem, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("validation failed: %w: content is required", ErrInvalidArgument)
	}

	item, err := a.repo.UpdateFeedbackContent(ctx, id, content, a.now())
	if err != nil {
		return nil, err
	}

	a.publish(item.SessionID, events.KindFeedbackUpdated, events.FeedbackPayload{
		ID:      item.ID,
		Content: &item.Content,
	})
	return item, nil
}

// DeleteFeedback removes a card and its votes
func (a *App) DeleteFeedback(ctx context.Context, id int64) error {
	item, err := a.repo.DeleteFeedback(ctx, id)
	if err != nil {
		return err
	}

	a.publish(item.SessionID, events.KindFeedbackDeleted, events.FeedbackPayload{ID: item.ID})

	log.Info().
		Int64("session_id", item.SessionID).
		Int64("feedback_id", item.ID).
		Msg("deleted feedback")
	return nil
}

// Vote records clientToken's vote for a card
func (a *App) Vote(ctx context.Context, feedbackID int64, clientToken string) (*VoteResult, error) {
	if strings.TrimSpace(clientToken) == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}

	result, err := a.repo.AddVote(ctx, feedbackID, clientToken, a.now())
	if err != nil {
		return nil, err
	}

	a.publish(result.SessionID, events.KindFeedbackVoted, events.FeedbackPayload{
		ID:        feedbackID,
		VoteCount: &result.TotalVotes,
		Action:    events.VoteActionAdded,
	})
	return result, nil
}

// Unvote withdraws clientToken's vote for a card
func (a *App) Unvote(ctx context.Context, feedbackID int64, clientToken string) (*VoteResult, error) {
	if strings.TrimSpace(clientToken) == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}

	result, err := a.repo.RemoveVote(ctx, feedbackID, clientToken)
	if err != nil {
		return nil, err
	}

	a.publish(result.SessionID, events.KindFeedbackVoted, events.FeedbackPayload{
		ID:        feedbackID,
		VoteCount: &result.TotalVotes,
		Action:    events.VoteActionRemoved,
	})
	return result, nil
}

// VotedItems lists the cards in a session that clientToken voted for
func (a *App) VotedItems(ctx context.Context, sessionID int64, clientToken string) ([]int64, error) {
	if strings.TrimSpace(clientToken) == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}
	return a.repo.ListVotedItems(ctx, sessionID, clientToken)
}

func (a *App) validateCreateFeedbackRequest(req *CreateFeedbackRequest) error {
	if req.SessionID <= 0 {
		return fmt.Errorf("%w: retrospective_id is required", ErrInvalidArgument)
	}
	if !slices.Contains(a.categories, req.Category) {
		return fmt.Errorf("%w: invalid category %q", ErrInvalidArgument, req.Category)
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidArgument)
	}
	if req.AuthorName != nil {
		name := strings.TrimSpace(*req.AuthorName)
		if name == "" {
			req.AuthorName = nil
		} else {
			req.AuthorName = &name
		}
	}
	return nil
}

// publish appends a feedback event. The mutation is already committed, so a
// failure here is logged rather than returned.
func (a *App) publish(sessionID int64, kind events.Kind, payload events.FeedbackPayload) {
	if a.events == nil {
		return
	}
	if _, err := a.events.Append(sessionID, kind, payload); err != nil {
		log.Error().
			Err(err).
			Int64("session_id", sessionID).
			Str("kind", string(kind)).
			Msg("failed to append feedback event")
	}
}

func (a *App) now() time.Time {
	return a.clock.Now().UTC()
}
