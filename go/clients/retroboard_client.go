package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/mcdev12/retroboard/go/internal/models"
)

const ClientTokenHeader = "X-Client-Token"

// EventsPage is the body of the event polling endpoint.
type EventsPage struct {
	Events          []events.Event `json:"events"`
	LatestTimestamp int64          `json:"latest_timestamp"`
	HasUpdates      bool           `json:"has_updates"`
}

// TimerAction is the body of a timer control request.
type TimerAction struct {
	Action      string `json:"action"`
	Duration    int    `json:"duration,omitempty"`
	ClientToken string `json:"client_token,omitempty"`
}

// RetroboardClient talks to the board server's JSON API as one client.
type RetroboardClient struct {
	*BaseClient
	clientToken string
}

func NewRetroboardClient(baseURL, clientToken string) *RetroboardClient {
	base := NewBaseClient(baseURL)
	base.SetHeader("Cache-Control", "no-cache")
	if clientToken != "" {
		base.SetHeader(ClientTokenHeader, clientToken)
	}
	return &RetroboardClient{BaseClient: base, clientToken: clientToken}
}

// FetchEvents returns the session's events newer than since.
func (c *RetroboardClient) FetchEvents(ctx context.Context, session string, since int64) (EventsPage, error) {
	endpoint := fmt.Sprintf("/api/events/%s?since=%s", url.PathEscape(session), strconv.FormatInt(since, 10))

	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return EventsPage{}, err
	}

	var page EventsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return EventsPage{}, fmt.Errorf("failed to decode events page: %w", err)
	}
	return page, nil
}

// Timer returns the session's current timer.
func (c *RetroboardClient) Timer(ctx context.Context, session string) (models.TimerSnapshot, error) {
	body, err := c.Get(ctx, fmt.Sprintf("/api/retrospectives/%s/timer", url.PathEscape(session)))
	if err != nil {
		return models.TimerSnapshot{}, err
	}

	var snap models.TimerSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return models.TimerSnapshot{}, fmt.Errorf("failed to decode timer: %w", err)
	}
	return snap, nil
}

// ControlTimer sends a start, pause, resume, stop or set_duration action.
func (c *RetroboardClient) ControlTimer(ctx context.Context, session string, action TimerAction) (models.TimerSnapshot, error) {
	if action.ClientToken == "" {
		action.ClientToken = c.clientToken
	}
	payload, err := json.Marshal(action)
	if err != nil {
		return models.TimerSnapshot{}, fmt.Errorf("failed to encode timer action: %w", err)
	}

	body, err := c.Post(ctx, fmt.Sprintf("/api/retrospectives/%s/timer", url.PathEscape(session)), bytes.NewReader(payload))
	if err != nil {
		return models.TimerSnapshot{}, err
	}

	var snap models.TimerSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return models.TimerSnapshot{}, fmt.Errorf("failed to decode timer: %w", err)
	}
	return snap, nil
}
