package board

import "github.com/mcdev12/retroboard/go/internal/models"

const (
	DefaultTitle        = "Retrospective Session"
	RecentSessionsLimit = 10
)

// DefaultCategories are the board columns used when no board config is loaded.
var DefaultCategories = []string{
	"what_went_right",
	"what_can_improve",
	"risks",
	"resolutions",
}

// CreateSessionRequest represents the data needed to open a board.
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// CreateFeedbackRequest represents a new card.
type CreateFeedbackRequest struct {
	SessionID  int64   `json:"retrospective_id"`
	Category   string  `json:"category"`
	Content    string  `json:"content"`
	AuthorName *string `json:"author_name"`
}

// UpdateFeedbackRequest replaces a card's content.
type UpdateFeedbackRequest struct {
	Content string `json:"content"`
}

// VoteResult is the vote that was recorded or removed and the item's new tally.
type VoteResult struct {
	Vote       models.Vote `json:"vote"`
	SessionID  int64       `json:"-"`
	TotalVotes int         `json:"total_votes"`
}
