package events

// Timer events carry models.TimerSnapshot as their data.

// FeedbackPayload carries the changed item's id and only the fields that changed.
type FeedbackPayload struct {
	ID         int64   `json:"id"`
	Category   *string `json:"category,omitempty"`
	Content    *string `json:"content,omitempty"`
	AuthorName *string `json:"author_name,omitempty"`
	VoteCount  *int    `json:"vote_count,omitempty"`
	Action     string  `json:"action,omitempty"`
}

const (
	VoteActionAdded   = "added"
	VoteActionRemoved = "removed"
)
