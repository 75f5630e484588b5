package db

import (
	"context"
	"database/sql"
	"time"
)

const createRetrospective = `
INSERT INTO retrospectives (session_id, title, is_active, created_at)
VALUES ($1, $2, TRUE, $3)
RETURNING id`

type CreateRetrospectiveParams struct {
	SessionID string
	Title     string
	CreatedAt time.Time
}

// CreateRetrospective inserts a session and reads it back so column
// decoding matches GetRetrospective on every driver.
func (q *Queries) CreateRetrospective(ctx context.Context, arg CreateRetrospectiveParams) (Retrospective, error) {
	var id int64
	if err := q.db.QueryRowContext(ctx, createRetrospective, arg.SessionID, arg.Title, arg.CreatedAt).Scan(&id); err != nil {
		return Retrospective{}, err
	}
	return q.GetRetrospective(ctx, id)
}

const getRetrospective = `
SELECT id, session_id, title, is_active, created_at
FROM retrospectives
WHERE id = $1`

func (q *Queries) GetRetrospective(ctx context.Context, id int64) (Retrospective, error) {
	row := q.db.QueryRowContext(ctx, getRetrospective, id)
	var i Retrospective
	err := row.Scan(&i.ID, &i.SessionID, &i.Title, &i.IsActive, &i.CreatedAt)
	return i, err
}

const getRetrospectiveBySessionID = `
SELECT id, session_id, title, is_active, created_at
FROM retrospectives
WHERE session_id = $1`

func (q *Queries) GetRetrospectiveBySessionID(ctx context.Context, sessionID string) (Retrospective, error) {
	row := q.db.QueryRowContext(ctx, getRetrospectiveBySessionID, sessionID)
	var i Retrospective
	err := row.Scan(&i.ID, &i.SessionID, &i.Title, &i.IsActive, &i.CreatedAt)
	return i, err
}

const listActiveRetrospectives = `
SELECT id, session_id, title, is_active, created_at
FROM retrospectives
WHERE is_active = TRUE
ORDER BY created_at DESC, id DESC
LIMIT $1`

func (q *Queries) ListActiveRetrospectives(ctx context.Context, limit int32) ([]Retrospective, error) {
	rows, err := q.db.QueryContext(ctx, listActiveRetrospectives, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Retrospective
	for rows.Next() {
		var i Retrospective
		if err := rows.Scan(&i.ID, &i.SessionID, &i.Title, &i.IsActive, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deactivateRetrospective = `
UPDATE retrospectives SET is_active = FALSE
WHERE id = $1`

func (q *Queries) DeactivateRetrospective(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deactivateRetrospective, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getRetrospectiveTimer = `
SELECT timer_duration, timer_started_at_ms, timer_is_running, timer_is_paused,
       timer_remaining_at_pause_ms, timer_controlled_by
FROM retrospectives
WHERE id = $1`

func (q *Queries) GetRetrospectiveTimer(ctx context.Context, id int64) (RetrospectiveTimer, error) {
	row := q.db.QueryRowContext(ctx, getRetrospectiveTimer, id)
	var i RetrospectiveTimer
	err := row.Scan(
		&i.TimerDuration,
		&i.TimerStartedAtMs,
		&i.TimerIsRunning,
		&i.TimerIsPaused,
		&i.TimerRemainingAtPauseMs,
		&i.TimerControlledBy,
	)
	return i, err
}

const updateRetrospectiveTimer = `
UPDATE retrospectives
SET timer_duration = $1,
    timer_started_at_ms = $2,
    timer_is_running = $3,
    timer_is_paused = $4,
    timer_remaining_at_pause_ms = $5,
    timer_controlled_by = $6
WHERE id = $7`

type UpdateRetrospectiveTimerParams struct {
	TimerDuration           int32
	TimerStartedAtMs        sql.NullInt64
	TimerIsRunning          bool
	TimerIsPaused           bool
	TimerRemainingAtPauseMs int64
	TimerControlledBy       string
	ID                      int64
}

func (q *Queries) UpdateRetrospectiveTimer(ctx context.Context, arg UpdateRetrospectiveTimerParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateRetrospectiveTimer,
		arg.TimerDuration,
		arg.TimerStartedAtMs,
		arg.TimerIsRunning,
		arg.TimerIsPaused,
		arg.TimerRemainingAtPauseMs,
		arg.TimerControlledBy,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
