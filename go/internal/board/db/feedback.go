package db

import (
	"context"
	"database/sql"
	"time"
)

const createFeedbackItem = `
INSERT INTO feedback_items (retrospective_id, category, content, author_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

type CreateFeedbackItemParams struct {
	RetrospectiveID int64
	Category        string
	Content         string
	AuthorName      sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (q *Queries) CreateFeedbackItem(ctx context.Context, arg CreateFeedbackItemParams) (FeedbackItem, error) {
	row := q.db.QueryRowContext(ctx, createFeedbackItem,
		arg.RetrospectiveID,
		arg.Category,
		arg.Content,
		arg.AuthorName,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return FeedbackItem{}, err
	}
	return q.GetFeedbackItem(ctx, id)
}

const feedbackColumns = `
SELECT fi.id, fi.retrospective_id, fi.category, fi.content, fi.author_name,
       fi.created_at, fi.updated_at,
       (SELECT COUNT(*) FROM votes v WHERE v.feedback_item_id = fi.id) AS vote_count
FROM feedback_items fi`

const getFeedbackItem = feedbackColumns + `
WHERE fi.id = $1`

func (q *Queries) GetFeedbackItem(ctx context.Context, id int64) (FeedbackItem, error) {
	row := q.db.QueryRowContext(ctx, getFeedbackItem, id)
	var i FeedbackItem
	err := row.Scan(
		&i.ID,
		&i.RetrospectiveID,
		&i.Category,
		&i.Content,
		&i.AuthorName,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.VoteCount,
	)
	return i, err
}

const listFeedbackItems = feedbackColumns + `
WHERE fi.retrospective_id = $1
ORDER BY fi.created_at ASC, fi.id ASC`

func (q *Queries) ListFeedbackItems(ctx context.Context, retrospectiveID int64) ([]FeedbackItem, error) {
	rows, err := q.db.QueryContext(ctx, listFeedbackItems, retrospectiveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FeedbackItem
	for rows.Next() {
		var i FeedbackItem
		if err := rows.Scan(
			&i.ID,
			&i.RetrospectiveID,
			&i.Category,
			&i.Content,
			&i.AuthorName,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.VoteCount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateFeedbackContent = `
UPDATE feedback_items SET content = $1, updated_at = $2
WHERE id = $3`

type UpdateFeedbackContentParams struct {
	Content   string
	UpdatedAt time.Time
	ID        int64
}

func (q *Queries) UpdateFeedbackContent(ctx context.Context, arg UpdateFeedbackContentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateFeedbackContent, arg.Content, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteFeedbackItem = `
DELETE FROM feedback_items WHERE id = $1`

func (q *Queries) DeleteFeedbackItem(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteFeedbackItem, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
