package models

import "time"

// TimerStatus is the coarse state of a session timer.
type TimerStatus string

const (
	TimerStatusIdle    TimerStatus = "IDLE"
	TimerStatusRunning TimerStatus = "RUNNING"
	TimerStatusPaused  TimerStatus = "PAUSED"
)

// TimerState is the authoritative countdown state of one session.
// Running and Paused are never both true, and Controller is set whenever either is.
type TimerState struct {
	Duration  int        `json:"duration"`
	StartedAt *time.Time `json:"start_time,omitempty"`
	Running   bool       `json:"is_running"`
	Paused    bool       `json:"is_paused"`
	// RemainingAtPauseMs is the exact budget left when the timer was paused.
	RemainingAtPauseMs int64  `json:"remaining_at_pause_ms"`
	Controller         string `json:"controlled_by,omitempty"`
}

// Status derives the state machine position from the flags.
func (t TimerState) Status() TimerStatus {
	switch {
	case t.Running:
		return TimerStatusRunning
	case t.Paused:
		return TimerStatusPaused
	default:
		return TimerStatusIdle
	}
}

// Remaining returns the whole seconds left at now, rounded up.
func (t TimerState) Remaining(now time.Time) int {
	budget := t.Budget(now)
	return int((budget + time.Second - 1) / time.Second)
}

// Budget returns the exact time left at now. It is zero for an idle timer.
func (t TimerState) Budget(now time.Time) time.Duration {
	switch t.Status() {
	case TimerStatusRunning:
		total := time.Duration(t.Duration) * time.Second
		if t.StartedAt == nil {
			return total
		}
		elapsed := now.Sub(*t.StartedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		if elapsed >= total {
			return 0
		}
		return total - elapsed
	case TimerStatusPaused:
		if t.RemainingAtPauseMs <= 0 {
			return 0
		}
		return time.Duration(t.RemainingAtPauseMs) * time.Millisecond
	default:
		return 0
	}
}

// Snapshot renders the state for clients and event payloads.
func (t TimerState) Snapshot(sessionID int64, now time.Time) TimerSnapshot {
	snap := TimerSnapshot{
		SessionID:    sessionID,
		Duration:     t.Duration,
		IsRunning:    t.Running,
		IsPaused:     t.Paused,
		RemainingSec: t.Remaining(now),
	}
	if t.StartedAt != nil {
		started := *t.StartedAt
		snap.StartTime = &started
	}
	if t.Controller != "" {
		holder := t.Controller
		snap.ControlledBy = &holder
	}
	return snap
}

// TimerSnapshot is the wire view of a session timer.
type TimerSnapshot struct {
	SessionID    int64      `json:"id"`
	Duration     int        `json:"duration"`
	StartTime    *time.Time `json:"start_time"`
	IsRunning    bool       `json:"is_running"`
	IsPaused     bool       `json:"is_paused"`
	RemainingSec int        `json:"remaining_time"`
	ControlledBy *string    `json:"controlled_by"`
}
