package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/retroboard/go/internal/board/db"
	"github.com/mcdev12/retroboard/go/internal/models"
	"github.com/mcdev12/retroboard/go/internal/sqlutil"
)

// Repository implements board data access over Postgres or SQLite.
type Repository struct {
	conn    *sql.DB
	queries *db.Queries
}

// NewRepository creates a new board repository
func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		conn:    conn,
		queries: db.New(conn),
	}
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %v: %w", what, id, err)
}

// CreateSession inserts a new active session
func (r *Repository) CreateSession(ctx context.Context, shareToken, title string, createdAt time.Time) (*models.Session, error) {
	row, err := r.queries.CreateRetrospective(ctx, db.CreateRetrospectiveParams{
		SessionID: shareToken,
		Title:     title,
		CreatedAt: createdAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sessionToModel(row), nil
}

// GetSession retrieves a session by numeric id, active or not
func (r *Repository) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	row, err := r.queries.GetRetrospective(ctx, id)
	if err != nil {
		return nil, notFound(err, "session", id)
	}
	return sessionToModel(row), nil
}

// GetSessionByShareToken retrieves a session by its public token
func (r *Repository) GetSessionByShareToken(ctx context.Context, token string) (*models.Session, error) {
	row, err := r.queries.GetRetrospectiveBySessionID(ctx, token)
	if err != nil {
		return nil, notFound(err, "session", token)
	}
	return sessionToModel(row), nil
}

// ListActiveSessions returns the newest active sessions
func (r *Repository) ListActiveSessions(ctx context.Context, limit int) ([]*models.Session, error) {
	rows, err := r.queries.ListActiveRetrospectives(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sessions := make([]*models.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, sessionToModel(row))
	}
	return sessions, nil
}

// DeactivateSession hides a session from lookups
func (r *Repository) DeactivateSession(ctx context.Context, id int64) error {
	n, err := r.queries.DeactivateRetrospective(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return nil
}

// CreateFeedback inserts a card with no votes
func (r *Repository) CreateFeedback(ctx context.Context, req CreateFeedbackRequest, now time.Time) (*models.FeedbackItem, error) {
	row, err := r.queries.CreateFeedbackItem(ctx, db.CreateFeedbackItemParams{
		RetrospectiveID: req.SessionID,
		Category:        req.Category,
		Content:         req.Content,
		AuthorName:      sqlutil.ToSqlString(req.AuthorName),
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}
	return feedbackToModel(row), nil
}

// GetFeedback retrieves a card with its vote count
func (r *Repository) GetFeedback(ctx context.Context, id int64) (*models.FeedbackItem, error) {
	row, err := r.queries.GetFeedbackItem(ctx, id)
	if err != nil {
		return nil, notFound(err, "feedback item", id)
	}
	return feedbackToModel(row), nil
}

// ListFeedback returns a session's cards, oldest first
func (r *Repository) ListFeedback(ctx context.Context, sessionID int64) ([]*models.FeedbackItem, error) {
	rows, err := r.queries.ListFeedbackItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	items := make([]*models.FeedbackItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, feedbackToModel(row))
	}
	return items, nil
}

// UpdateFeedbackContent replaces a card's content
func (r *Repository) UpdateFeedbackContent(ctx context.Context, id int64, content string, now time.Time) (*models.FeedbackItem, error) {
	var item *models.FeedbackItem
	err := sqlutil.Run(ctx, r.conn, r.queries.WithTx, func(q *db.Queries) error {
		n, err := q.UpdateFeedbackContent(ctx, db.UpdateFeedbackContentParams{
			Content:   content,
			UpdatedAt: now,
			ID:        id,
		})
		if err != nil {
			return fmt.Errorf("failed to update feedback: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("feedback item %d: %w", id, ErrNotFound)
		}
		row, err := q.GetFeedbackItem(ctx, id)
		if err != nil {
			return notFound(err, "feedback item", id)
		}
		item = feedbackToModel(row)
		return nil
	})
	return item, err
}

// DeleteFeedback removes a card and its votes and returns what was removed
func (r *Repository) DeleteFeedback(ctx context.Context, id int64) (*models.FeedbackItem, error) {
	var item *models.FeedbackItem
	err := sqlutil.Run(ctx, r.conn, r.queries.WithTx, func(q *db.Queries) error {
		row, err := q.GetFeedbackItem(ctx, id)
		if err != nil {
			return notFound(err, "feedback item", id)
		}
		if err := q.DeleteVotesForFeedbackItem(ctx, id); err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		if _, err := q.DeleteFeedbackItem(ctx, id); err != nil {
			return fmt.Errorf("failed to delete feedback: %w", err)
		}
		item = feedbackToModel(row)
		return nil
	})
	return item, err
}

// AddVote records one vote per client per card
func (r *Repository) AddVote(ctx context.Context, feedbackID int64, clientToken string, now time.Time) (*VoteResult, error) {
	var result *VoteResult
	err := sqlutil.Run(ctx, r.conn, r.queries.WithTx, func(q *db.Queries) error {
		row, err := q.GetFeedbackItem(ctx, feedbackID)
		if err != nil {
			return notFound(err, "feedback item", feedbackID)
		}
		n, err := q.CreateVote(ctx, db.CreateVoteParams{
			FeedbackItemID: feedbackID,
			DeviceID:       clientToken,
			CreatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("failed to create vote: %w", err)
		}
		if n == 0 {
			return ErrDuplicateVote
		}
		count, err := q.CountVotes(ctx, feedbackID)
		if err != nil {
			return fmt.Errorf("failed to count votes: %w", err)
		}
		result = &VoteResult{
			Vote: models.Vote{
				FeedbackItemID: feedbackID,
				ClientToken:    clientToken,
				CreatedAt:      now,
			},
			SessionID:  row.RetrospectiveID,
			TotalVotes: int(count),
		}
		return nil
	})
	return result, err
}

// RemoveVote withdraws a client's vote from a card
func (r *Repository) RemoveVote(ctx context.Context, feedbackID int64, clientToken string) (*VoteResult, error) {
	var result *VoteResult
	err := sqlutil.Run(ctx, r.conn, r.queries.WithTx, func(q *db.Queries) error {
		row, err := q.GetFeedbackItem(ctx, feedbackID)
		if err != nil {
			return notFound(err, "feedback item", feedbackID)
		}
		n, err := q.DeleteVote(ctx, db.DeleteVoteParams{
			FeedbackItemID: feedbackID,
			DeviceID:       clientToken,
		})
		if err != nil {
			return fmt.Errorf("failed to delete vote: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("vote on feedback item %d: %w", feedbackID, ErrNotFound)
		}
		count, err := q.CountVotes(ctx, feedbackID)
		if err != nil {
			return fmt.Errorf("failed to count votes: %w", err)
		}
		result = &VoteResult{
			Vote: models.Vote{
				FeedbackItemID: feedbackID,
				ClientToken:    clientToken,
			},
			SessionID:  row.RetrospectiveID,
			TotalVotes: int(count),
		}
		return nil
	})
	return result, err
}

// ListVotedItems returns the ids of the session's cards a client voted for
func (r *Repository) ListVotedItems(ctx context.Context, sessionID int64, clientToken string) ([]int64, error) {
	ids, err := r.queries.ListVotedFeedbackItemIDs(ctx, db.ListVotedFeedbackItemIDsParams{
		RetrospectiveID: sessionID,
		DeviceID:        clientToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// LoadTimer reads the timer columns of a session
func (r *Repository) LoadTimer(ctx context.Context, sessionID int64) (models.TimerState, error) {
	row, err := r.queries.GetRetrospectiveTimer(ctx, sessionID)
	if err != nil {
		return models.TimerState{}, notFound(err, "session", sessionID)
	}
	return models.TimerState{
		Duration:           int(row.TimerDuration),
		StartedAt:          sqlutil.FromSqlMillis(row.TimerStartedAtMs),
		Running:            row.TimerIsRunning,
		Paused:             row.TimerIsPaused,
		RemainingAtPauseMs: row.TimerRemainingAtPauseMs,
		Controller:         row.TimerControlledBy,
	}, nil
}

// SaveTimer overwrites the timer columns of a session
func (r *Repository) SaveTimer(ctx context.Context, sessionID int64, state models.TimerState) error {
	n, err := r.queries.UpdateRetrospectiveTimer(ctx, db.UpdateRetrospectiveTimerParams{
		TimerDuration:           int32(state.Duration),
		TimerStartedAtMs:        sqlutil.ToSqlMillis(state.StartedAt),
		TimerIsRunning:          state.Running,
		TimerIsPaused:           state.Paused,
		TimerRemainingAtPauseMs: state.RemainingAtPauseMs,
		TimerControlledBy:       state.Controller,
		ID:                      sessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to save timer: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
	}
	return nil
}

func sessionToModel(row db.Retrospective) *models.Session {
	return &models.Session{
		ID:         row.ID,
		ShareToken: row.SessionID,
		Title:      row.Title,
		IsActive:   row.IsActive,
		CreatedAt:  row.CreatedAt,
	}
}

func feedbackToModel(row db.FeedbackItem) *models.FeedbackItem {
	return &models.FeedbackItem{
		ID:         row.ID,
		SessionID:  row.RetrospectiveID,
		Category:   row.Category,
		Content:    row.Content,
		AuthorName: sqlutil.FromSqlStringPtr(row.AuthorName),
		VoteCount:  int(row.VoteCount),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
