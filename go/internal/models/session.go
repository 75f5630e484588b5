package models

import "time"

// Session represents one retrospective board.
type Session struct {
	ID         int64     `json:"id"`
	ShareToken string    `json:"session_id"`
	Title      string    `json:"title"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
