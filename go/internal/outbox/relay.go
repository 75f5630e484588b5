package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/mcdev12/retroboard/go/internal/metrics"
	"github.com/rs/zerolog/log"
)

type Config struct {
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize: 1024,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Relay mirrors appended events to an EventPublisher. It sits behind the
// event log as its sink: Enqueue never blocks, and events that do not fit in
// the buffer are dropped and counted. Browsers keep polling the log, so the
// relay is best effort.
type Relay struct {
	publisher EventPublisher
	clock     clockwork.Clock
	config    Config
	queue     chan OutboxEvent
}

func NewRelay(publisher EventPublisher, clock clockwork.Clock, cfg Config) *Relay {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		publisher: publisher,
		clock:     clock,
		config:    cfg,
		queue:     make(chan OutboxEvent, cfg.BufferSize),
	}
}

// Enqueue implements eventlog.Sink.
func (r *Relay) Enqueue(ev events.Event) {
	select {
	case r.queue <- FromEvent(ev):
	default:
		metrics.OutboxPublishedTotal.WithLabelValues("dropped").Inc()
		log.Warn().
			Int64("session_id", ev.SessionID).
			Str("kind", string(ev.Type)).
			Msg("outbox buffer full, dropping event")
	}
}

// Run publishes queued events in order until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	log.Info().
		Int("buffer", r.config.BufferSize).
		Int("max_retries", r.config.MaxRetries).
		Msg("outbox relay started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Int("pending", len(r.queue)).Msg("outbox relay stopped")
			return
		case event := <-r.queue:
			if err := r.publishWithRetry(ctx, event); err != nil {
				metrics.OutboxPublishedTotal.WithLabelValues("error").Inc()
				log.Error().
					Err(err).
					Str("event_id", event.ID.String()).
					Str("event_type", string(event.EventType)).
					Msg("failed to publish event")
				continue
			}
			metrics.OutboxPublishedTotal.WithLabelValues("ok").Inc()
		}
	}
}

func (r *Relay) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", event.ID.String()).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
