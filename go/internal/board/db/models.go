package db

import (
	"database/sql"
	"time"
)

type Retrospective struct {
	ID        int64
	SessionID string
	Title     string
	IsActive  bool
	CreatedAt time.Time
}

type RetrospectiveTimer struct {
	TimerDuration           int32
	TimerStartedAtMs        sql.NullInt64
	TimerIsRunning          bool
	TimerIsPaused           bool
	TimerRemainingAtPauseMs int64
	TimerControlledBy       string
}

type FeedbackItem struct {
	ID              int64
	RetrospectiveID int64
	Category        string
	Content         string
	AuthorName      sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
	VoteCount       int64
}
