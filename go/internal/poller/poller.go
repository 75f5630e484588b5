package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/retroboard/go/clients"
	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the delay between the end of one poll and the start of the next.
const DefaultInterval = time.Second

// Fetcher retrieves the session's events newer than since.
type Fetcher interface {
	FetchEvents(ctx context.Context, session string, since int64) (clients.EventsPage, error)
}

// Handler applies one event locally.
type Handler func(ctx context.Context, ev events.Event)

// Handlers routes events by kind family. Nil handlers drop their events.
type Handlers struct {
	Timer Handler
	Board Handler
}

// Status is the observable health of a subscription.
type Status struct {
	Connected           bool
	ConsecutiveFailures int
	LastError           string
	EventCount          int
	LastUpdate          time.Time
	Cursor              int64
}

// Poller keeps one session's local view in sync by polling for events.
// At most one request is in flight at a time.
type Poller struct {
	fetcher  Fetcher
	session  string
	handlers Handlers
	clock    clockwork.Clock
	interval time.Duration
	wakeCh   chan struct{}

	pollMu sync.Mutex

	mu     sync.Mutex
	status Status
}

// New creates a poller for session. A zero interval uses DefaultInterval.
func New(fetcher Fetcher, session string, handlers Handlers, interval time.Duration, clock clockwork.Clock) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		fetcher:  fetcher,
		session:  session,
		handlers: handlers,
		clock:    clock,
		interval: interval,
		wakeCh:   make(chan struct{}, 1),
	}
}

// Run polls immediately and then once per interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	log.Info().
		Str("session", p.session).
		Dur("interval", p.interval).
		Msg("sync poller started")

	for {
		if err := p.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Str("session", p.session).Msg("poll failed")
		}

		timer := p.clock.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			stopAndDrainTimer(timer)
			p.mu.Lock()
			p.status.Connected = false
			p.mu.Unlock()
			log.Info().Str("session", p.session).Msg("sync poller stopped")
			return
		case <-timer.Chan():
		case <-p.wakeCh:
			stopAndDrainTimer(timer)
		}
	}
}

// Refresh asks a running poller to poll now instead of waiting for the next tick.
func (p *Poller) Refresh() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

// Status returns a copy of the current health.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Poll performs one fetch and dispatches the returned events in order.
// On failure the cursor is left untouched so the next poll retries.
func (p *Poller) Poll(ctx context.Context) error {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	cursor := p.Status().Cursor
	page, err := p.fetcher.FetchEvents(ctx, p.session, cursor)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.recordFailure(err)
		return err
	}

	dispatched := 0
	for _, ev := range page.Events {
		if ev.Timestamp <= cursor {
			continue
		}
		if err := ctx.Err(); err != nil {
			p.recordSuccess(cursor, dispatched)
			return err
		}
		p.dispatch(ctx, ev)
		cursor = ev.Timestamp
		dispatched++
	}
	if page.LatestTimestamp > cursor {
		cursor = page.LatestTimestamp
	}
	p.recordSuccess(cursor, dispatched)
	return nil
}

func (p *Poller) dispatch(ctx context.Context, ev events.Event) {
	var h Handler
	switch {
	case ev.Type.IsTimer():
		h = p.handlers.Timer
	case ev.Type.IsFeedback():
		h = p.handlers.Board
	default:
		log.Debug().Str("kind", string(ev.Type)).Msg("ignoring unknown event kind")
		return
	}
	if h != nil {
		h(ctx, ev)
	}
}

func (p *Poller) recordSuccess(cursor int64, dispatched int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.Connected = true
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	if cursor > p.status.Cursor {
		p.status.Cursor = cursor
	}
	if dispatched > 0 {
		p.status.EventCount += dispatched
		p.status.LastUpdate = p.clock.Now()
	}
}

func (p *Poller) recordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.Connected = false
	p.status.ConsecutiveFailures++
	p.status.LastError = err.Error()
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
