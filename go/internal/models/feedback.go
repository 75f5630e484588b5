package models

import "time"

// FeedbackItem is a single card on the board.
type FeedbackItem struct {
	ID         int64     `json:"id"`
	SessionID  int64     `json:"retrospective_id"`
	Category   string    `json:"category"`
	Content    string    `json:"content"`
	AuthorName *string   `json:"author_name"`
	VoteCount  int       `json:"vote_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Vote records that one client voted for one item.
type Vote struct {
	FeedbackItemID int64     `json:"feedback_item_id"`
	ClientToken    string    `json:"device_id"`
	CreatedAt      time.Time `json:"created_at"`
}
