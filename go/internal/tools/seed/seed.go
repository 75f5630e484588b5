package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

//go:embed demo.json
var demoSessions []byte

// Session mirrors one entry of the seed file.
type Session struct {
	ShareToken string     `json:"session_id"`
	Title      string     `json:"title"`
	Feedback   []Feedback `json:"feedback"`
}

type Feedback struct {
	Category   string  `json:"category"`
	Content    string  `json:"content"`
	AuthorName *string `json:"author_name"`
}

// Summary counts what a Run did.
type Summary struct {
	Total    int
	Inserted int
	Skipped  int
	Cards    int
}

// DB is the subset of pgxpool.Pool the seeder uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Load reads sessions from path, or the built-in demo set when path is empty.
func Load(path string) ([]Session, error) {
	data := demoSessions
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
	}

	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("unmarshal seed file: %w", err)
	}
	for i, s := range sessions {
		if _, err := uuid.Parse(s.ShareToken); err != nil {
			return nil, fmt.Errorf("session %d: invalid session_id %q", i, s.ShareToken)
		}
	}
	return sessions, nil
}

// Run inserts sessions that do not exist yet, keyed by share token, along
// with their cards. Existing sessions are left alone.
func Run(ctx context.Context, db DB, sessions []Session, now time.Time) (Summary, error) {
	summary := Summary{Total: len(sessions)}
	for _, s := range sessions {
		var id int64
		err := db.QueryRow(ctx, `
            INSERT INTO retrospectives (session_id, title, is_active, created_at)
            VALUES ($1, $2, TRUE, $3)
            ON CONFLICT (session_id) DO NOTHING
            RETURNING id
        `, s.ShareToken, s.Title, now).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			summary.Skipped++
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("insert session %s: %w", s.ShareToken, err)
		}
		summary.Inserted++

		for i, f := range s.Feedback {
			// spread created_at so cards keep file order
			at := now.Add(time.Duration(i) * time.Millisecond)
			if _, err := db.Exec(ctx, `
                INSERT INTO feedback_items (retrospective_id, category, content, author_name, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $5)
            `, id, f.Category, f.Content, f.AuthorName, at); err != nil {
				return summary, fmt.Errorf("insert feedback for session %s: %w", s.ShareToken, err)
			}
			summary.Cards++
		}

		log.Info().
			Int64("session_id", id).
			Str("share_token", s.ShareToken).
			Int("cards", len(s.Feedback)).
			Msg("seeded session")
	}
	return summary, nil
}
