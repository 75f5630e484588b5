package events

import (
	"encoding/json"
	"strings"
)

// Kind is the wire "type" of a board event.
type Kind string

const (
	KindTimerStart  Kind = "timer_start"
	KindTimerPause  Kind = "timer_pause"
	KindTimerResume Kind = "timer_resume"
	KindTimerStop   Kind = "timer_stop"
	KindTimerUpdate Kind = "timer_update"

	KindFeedbackAdded   Kind = "feedback_added"
	KindFeedbackUpdated Kind = "feedback_updated"
	KindFeedbackVoted   Kind = "feedback_voted"
	KindFeedbackDeleted Kind = "feedback_deleted"
)

// IsTimer reports whether the kind belongs to the timer display.
func (k Kind) IsTimer() bool {
	return strings.HasPrefix(string(k), "timer_")
}

// IsFeedback reports whether the kind belongs to the board display.
func (k Kind) IsFeedback() bool {
	return strings.HasPrefix(string(k), "feedback_")
}

// Event is an immutable change notification for one session.
// Timestamp is a per-session logical clock in milliseconds and strictly increases.
type Event struct {
	Type      Kind            `json:"type"`
	SessionID int64           `json:"retrospectiveId"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the event data into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}
