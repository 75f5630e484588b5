package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/mcdev12/retroboard/go/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ErrInvalidSession is returned when an event is addressed to a non-positive session id.
var ErrInvalidSession = errors.New("invalid session id")

// Config bounds the memory held per session.
type Config struct {
	MaxEvents     int           // events retained per session
	Retention     time.Duration // max age of a retained event
	SweepInterval time.Duration // how often Run evicts expired events
}

// DefaultConfig returns the limits used by the board server.
func DefaultConfig() Config {
	return Config{
		MaxEvents:     100,
		Retention:     5 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// Sink receives a copy of every appended event. Enqueue must not block.
type Sink interface {
	Enqueue(event events.Event)
}

// Page is one cursor read: the events newer than the cursor and the latest
// retained timestamp observed under the same lock.
type Page struct {
	Events []events.Event
	Latest int64
}

type stream struct {
	mu     sync.Mutex
	events []events.Event
	last   int64
}

// Log is an in-memory, per-session, append-only event store.
type Log struct {
	clock  clockwork.Clock
	config Config
	sink   Sink

	// mu guards the sessions map. Appends and reads hold it shared for their
	// whole duration so Sweep can never drop a stream that is being written.
	mu       sync.RWMutex
	sessions map[int64]*stream
}

// New creates an event log.
func New(cfg Config, clock clockwork.Clock) *Log {
	defaults := DefaultConfig()
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = defaults.MaxEvents
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaults.Retention
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Log{
		clock:    clock,
		config:   cfg,
		sessions: make(map[int64]*stream),
	}
}

// SetSink registers the relay that mirrors appended events. Call before serving.
func (l *Log) SetSink(sink Sink) {
	l.sink = sink
}

// Append records a new event for the session and returns it.
func (l *Log) Append(sessionID int64, kind events.Kind, payload any) (events.Event, error) {
	if sessionID <= 0 {
		return events.Event{}, fmt.Errorf("%w: %d", ErrInvalidSession, sessionID)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return events.Event{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	ev, byCap, byAge := l.append(sessionID, kind, data)

	metrics.EventsAppendedTotal.WithLabelValues(string(kind)).Inc()
	if byCap > 0 {
		metrics.EventsEvictedTotal.WithLabelValues("capacity").Add(float64(byCap))
	}
	if byAge > 0 {
		metrics.EventsEvictedTotal.WithLabelValues("retention").Add(float64(byAge))
	}

	log.Debug().
		Int64("session_id", sessionID).
		Str("kind", string(kind)).
		Int64("timestamp", ev.Timestamp).
		Msg("event appended")

	if l.sink != nil {
		l.sink.Enqueue(ev)
	}
	return ev, nil
}

func (l *Log) append(sessionID int64, kind events.Kind, data json.RawMessage) (events.Event, int, int) {
	l.mu.RLock()
	s, ok := l.sessions[sessionID]
	for !ok {
		l.mu.RUnlock()
		l.mu.Lock()
		if _, exists := l.sessions[sessionID]; !exists {
			l.sessions[sessionID] = &stream{}
			metrics.EventLogSessions.Set(float64(len(l.sessions)))
		}
		l.mu.Unlock()
		l.mu.RLock()
		s, ok = l.sessions[sessionID]
	}
	defer l.mu.RUnlock()

	now := l.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now.UnixMilli()
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts

	ev := events.Event{
		Type:      kind,
		SessionID: sessionID,
		Timestamp: ts,
		Data:      data,
	}
	s.events = append(s.events, ev)

	byCap := 0
	if over := len(s.events) - l.config.MaxEvents; over > 0 {
		s.events = slices.Delete(s.events, 0, over)
		byCap = over
	}
	byAge := s.evictBefore(l.cutoff(now))
	return ev, byCap, byAge
}

// Since returns the session's events newer than cursor, oldest first.
func (l *Log) Since(sessionID int64, cursor int64) []events.Event {
	return l.Read(sessionID, cursor).Events
}

// LatestTimestamp returns the newest retained timestamp for the session, or 0.
func (l *Log) LatestTimestamp(sessionID int64) int64 {
	return l.Read(sessionID, 0).Latest
}

// Read returns the events newer than cursor together with the latest timestamp.
func (l *Log) Read(sessionID int64, cursor int64) Page {
	l.mu.RLock()
	defer l.mu.RUnlock()

	page := Page{Events: []events.Event{}}
	s, ok := l.sessions[sessionID]
	if !ok {
		return page
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.events); n > 0 {
		page.Latest = s.events[n-1].Timestamp
	}
	i := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Timestamp > cursor
	})
	page.Events = append(page.Events, s.events[i:]...)
	return page
}

// Sweep evicts events past the retention window and drops sessions left empty.
// It returns the number of evicted events.
func (l *Log) Sweep() int {
	cutoff := l.cutoff(l.clock.Now())

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for id, s := range l.sessions {
		s.mu.Lock()
		evicted += s.evictBefore(cutoff)
		empty := len(s.events) == 0
		s.mu.Unlock()
		if empty {
			delete(l.sessions, id)
		}
	}
	metrics.EventLogSessions.Set(float64(len(l.sessions)))
	if evicted > 0 {
		metrics.EventsEvictedTotal.WithLabelValues("retention").Add(float64(evicted))
	}
	return evicted
}

// Sessions returns the number of sessions with retained events.
func (l *Log) Sessions() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions)
}

// Run sweeps on the configured interval until ctx is cancelled.
func (l *Log) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(l.config.SweepInterval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", l.config.SweepInterval).
		Dur("retention", l.config.Retention).
		Int("max_events", l.config.MaxEvents).
		Msg("event log sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event log sweeper shutting down")
			return
		case <-ticker.Chan():
			evicted := l.Sweep()
			log.Debug().
				Int("evicted", evicted).
				Int("sessions", l.Sessions()).
				Msg("event log swept")
		}
	}
}

func (l *Log) cutoff(now time.Time) int64 {
	return now.Add(-l.config.Retention).UnixMilli()
}

// evictBefore drops events at or before cutoff. Caller holds s.mu.
func (s *stream) evictBefore(cutoff int64) int {
	n := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].Timestamp > cutoff
	})
	if n > 0 {
		s.events = slices.Delete(s.events, 0, n)
	}
	return n
}
