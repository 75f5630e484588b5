package db

import (
	"context"
	"time"
)

const createVote = `
INSERT INTO votes (feedback_item_id, device_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (feedback_item_id, device_id) DO NOTHING`

type CreateVoteParams struct {
	FeedbackItemID int64
	DeviceID       string
	CreatedAt      time.Time
}

// CreateVote returns 0 rows affected when the device already voted for the item.
func (q *Queries) CreateVote(ctx context.Context, arg CreateVoteParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createVote, arg.FeedbackItemID, arg.DeviceID, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteVote = `
DELETE FROM votes WHERE feedback_item_id = $1 AND device_id = $2`

type DeleteVoteParams struct {
	FeedbackItemID int64
	DeviceID       string
}

func (q *Queries) DeleteVote(ctx context.Context, arg DeleteVoteParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteVote, arg.FeedbackItemID, arg.DeviceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteVotesForFeedbackItem = `
DELETE FROM votes WHERE feedback_item_id = $1`

func (q *Queries) DeleteVotesForFeedbackItem(ctx context.Context, feedbackItemID int64) error {
	_, err := q.db.ExecContext(ctx, deleteVotesForFeedbackItem, feedbackItemID)
	return err
}

const countVotes = `
SELECT COUNT(*) FROM votes WHERE feedback_item_id = $1`

func (q *Queries) CountVotes(ctx context.Context, feedbackItemID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countVotes, feedbackItemID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listVotedFeedbackItemIDs = `
SELECT v.feedback_item_id
FROM votes v
JOIN feedback_items fi ON fi.id = v.feedback_item_id
WHERE fi.retrospective_id = $1 AND v.device_id = $2
ORDER BY v.feedback_item_id`

type ListVotedFeedbackItemIDsParams struct {
	RetrospectiveID int64
	DeviceID        string
}

func (q *Queries) ListVotedFeedbackItemIDs(ctx context.Context, arg ListVotedFeedbackItemIDsParams) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listVotedFeedbackItemIDs, arg.RetrospectiveID, arg.DeviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
