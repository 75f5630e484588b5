package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/retroboard/go/internal/events"
)

// eventNamespace seeds deterministic message ids so a re-published event
// is dropped by the stream's duplicate window.
var eventNamespace = uuid.MustParse("6f1c8a52-3f4e-4b8e-9d0a-2f7c1b5e9a41")

// OutboxEvent is one board event on its way to the message bus.
type OutboxEvent struct {
	ID        uuid.UUID
	SessionID int64
	EventType events.Kind
	Timestamp int64
	Payload   json.RawMessage
}

// FromEvent derives the relay envelope for an appended event.
func FromEvent(ev events.Event) OutboxEvent {
	return OutboxEvent{
		ID:        uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("%d:%d", ev.SessionID, ev.Timestamp))),
		SessionID: ev.SessionID,
		EventType: ev.Type,
		Timestamp: ev.Timestamp,
		Payload:   ev.Data,
	}
}

// EventPublisher delivers one event to the bus.
type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}
