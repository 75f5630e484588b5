package timer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/mcdev12/retroboard/go/internal/metrics"
	"github.com/mcdev12/retroboard/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Store persists timer state on the session it belongs to.
type Store interface {
	LoadTimer(ctx context.Context, sessionID int64) (models.TimerState, error)
	SaveTimer(ctx context.Context, sessionID int64, state models.TimerState) error
}

// EventAppender receives timer transition notifications.
type EventAppender interface {
	Append(sessionID int64, kind events.Kind, payload any) (events.Event, error)
}

// MaxDurationLimit is the largest duration, in seconds, any timer accepts,
// whatever Config.MaxDuration says.
const MaxDurationLimit = math.MaxInt32

// Config holds coordinator limits.
type Config struct {
	// MaxDuration caps start and set_duration, in seconds. Zero means only
	// MaxDurationLimit applies.
	MaxDuration    int
	PersistTimeout time.Duration
	// IdleTTL is how long an idle session stays cached after its last use.
	// Negative evicts idle sessions on every sweep.
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type sessionTimer struct {
	mu         sync.Mutex
	loaded     bool
	state      models.TimerState
	generation uint64
	watchdog   clockwork.Timer
	lastUsed   time.Time
	evicted    bool
}

// Coordinator owns the timer of every session and enforces that only the
// lease holder can change a running or paused timer.
type Coordinator struct {
	clock  clockwork.Clock
	store  Store
	events EventAppender
	config Config

	mu       sync.Mutex
	sessions map[int64]*sessionTimer
}

// NewCoordinator creates a coordinator. store may be nil, in which case
// state lives only in memory.
func NewCoordinator(clock clockwork.Clock, store Store, appender EventAppender, cfg Config) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Coordinator{
		clock:    clock,
		store:    store,
		events:   appender,
		config:   cfg,
		sessions: make(map[int64]*sessionTimer),
	}
}

// Start begins a countdown of duration seconds and gives the lease to clientToken.
func (c *Coordinator) Start(ctx context.Context, sessionID int64, clientToken string, duration int) (snap models.TimerSnapshot, err error) {
	defer func() { c.observe("start", err) }()

	if err := c.validate(sessionID, clientToken); err != nil {
		return snap, err
	}
	if err := c.validateDuration(duration); err != nil {
		return snap, err
	}

	s, err := c.acquire(ctx, sessionID)
	if err != nil {
		return snap, err
	}
	defer s.mu.Unlock()

	if holder := s.state.Controller; holder != "" && holder != clientToken {
		return snap, &ConflictError{Holder: holder}
	}

	now := c.clock.Now()
	next := models.TimerState{
		Duration:   duration,
		StartedAt:  &now,
		Running:    true,
		Controller: clientToken,
	}
	if err := c.commit(ctx, sessionID, s, next); err != nil {
		return snap, err
	}
	c.armWatchdog(sessionID, s)

	log.Info().
		Int64("session_id", sessionID).
		Str("client", clientToken).
		Int("duration", duration).
		Msg("timer started")

	return c.emit(sessionID, s, events.KindTimerStart), nil
}

// Pause freezes a running timer. The lease stays with the caller.
func (c *Coordinator) Pause(ctx context.Context, sessionID int64, clientToken string) (snap models.TimerSnapshot, err error) {
	defer func() { c.observe("pause", err) }()

	if err := c.validate(sessionID, clientToken); err != nil {
		return snap, err
	}
	s, err := c.acquire(ctx, sessionID)
	if err != nil {
		return snap, err
	}
	defer s.mu.Unlock()

	if !s.state.Running || s.state.Controller != clientToken {
		return snap, &ConflictError{Holder: s.state.Controller}
	}

	next := s.state
	next.RemainingAtPauseMs = s.state.Budget(c.clock.Now()).Milliseconds()
	next.Running = false
	next.Paused = true
	next.StartedAt = nil
	if err := c.commit(ctx, sessionID, s, next); err != nil {
		return snap, err
	}
	c.cancelWatchdog(s)

	log.Info().
		Int64("session_id", sessionID).
		Str("client", clientToken).
		Int64("remaining_ms", next.RemainingAtPauseMs).
		Msg("timer paused")

	return c.emit(sessionID, s, events.KindTimerPause), nil
}

// Resume restarts a paused timer with whatever was left when it was paused.
func (c *Coordinator) Resume(ctx context.Context, sessionID int64, clientToken string) (snap models.TimerSnapshot, err error) {
	defer func() { c.observe("resume", err) }()

	if err := c.validate(sessionID, clientToken); err != nil {
		return snap, err
	}
	s, err := c.acquire(ctx, sessionID)
	if err != nil {
		return snap, err
	}
	defer s.mu.Unlock()

	if !s.state.Paused || s.state.Controller != clientToken {
		return snap, &ConflictError{Holder: s.state.Controller}
	}
	if s.state.RemainingAtPauseMs <= 0 {
		return snap, fmt.Errorf("%w: no time remaining", ErrInvalidState)
	}

	// The new duration is the budget rounded up to whole seconds; the start
	// is backdated by the rounding so the deadline lands on the exact budget.
	budget := time.Duration(s.state.RemainingAtPauseMs) * time.Millisecond
	seconds := int((budget + time.Second - 1) / time.Second)
	started := c.clock.Now().Add(budget - time.Duration(seconds)*time.Second)

	next := s.state
	next.Duration = seconds
	next.StartedAt = &started
	next.Running = true
	next.Paused = false
	next.RemainingAtPauseMs = 0
	if err := c.commit(ctx, sessionID, s, next); err != nil {
		return snap, err
	}
	c.armWatchdog(sessionID, s)

	log.Info().
		Int64("session_id", sessionID).
		Str("client", clientToken).
		Int("remaining", next.Duration).
		Msg("timer resumed")

	return c.emit(sessionID, s, events.KindTimerResume), nil
}

// Stop resets the timer to Idle and releases the lease. Stopping an idle
// timer returns the idle state without emitting anything.
func (c *Coordinator) Stop(ctx context.Context, sessionID int64, clientToken string) (snap models.TimerSnapshot, err error) {
	defer func() { c.observe("stop", err) }()

	if err := c.validate(sessionID, clientToken); err != nil {
		return snap, err
	}
	s, err := c.acquire(ctx, sessionID)
	if err != nil {
		return snap, err
	}
	defer s.mu.Unlock()

	if holder := s.state.Controller; holder != "" && holder != clientToken {
		return snap, &ConflictError{Holder: holder}
	}
	if s.state.Status() == models.TimerStatusIdle {
		return s.state.Snapshot(sessionID, c.clock.Now()), nil
	}

	if err := c.commit(ctx, sessionID, s, models.TimerState{}); err != nil {
		return snap, err
	}
	c.cancelWatchdog(s)

	log.Info().
		Int64("session_id", sessionID).
		Str("client", clientToken).
		Msg("timer stopped")

	return c.emit(sessionID, s, events.KindTimerStop), nil
}

// SetDuration changes the configured duration without touching the
// running, paused or lease state. A running timer is re-armed against its
// original start instant and expires immediately if that is already past.
func (c *Coordinator) SetDuration(ctx context.Context, sessionID int64, clientToken string, duration int) (snap models.TimerSnapshot, err error) {
	defer func() { c.observe("set_duration", err) }()

	if err := c.validate(sessionID, clientToken); err != nil {
		return snap, err
	}
	if err := c.validateDuration(duration); err != nil {
		return snap, err
	}
	s, err := c.acquire(ctx, sessionID)
	if err != nil {
		return snap, err
	}
	defer s.mu.Unlock()

	if holder := s.state.Controller; holder != "" && holder != clientToken {
		return snap, &ConflictError{Holder: holder}
	}

	next := s.state
	next.Duration = duration
	if next.Paused {
		next.RemainingAtPauseMs = int64(duration) * 1000
	}
	if err := c.commit(ctx, sessionID, s, next); err != nil {
		return snap, err
	}

	log.Info().
		Int64("session_id", sessionID).
		Str("client", clientToken).
		Int("duration", duration).
		Msg("timer duration updated")

	if s.state.Running {
		if s.state.Remaining(c.clock.Now()) == 0 {
			c.expireLocked(ctx, sessionID, s, "lazy")
			return s.state.Snapshot(sessionID, c.clock.Now()), nil
		}
		c.armWatchdog(sessionID, s)
	}
	return c.emit(sessionID, s, events.KindTimerUpdate), nil
}

// GetState returns the session's timer as seen now. An overdue running
// timer is expired on this path if the watchdog has not got to it yet.
func (c *Coordinator) GetState(ctx context.Context, sessionID int64) (models.TimerSnapshot, error) {
	if sessionID <= 0 {
		return models.TimerSnapshot{}, fmt.Errorf("%w: session id %d", ErrInvalidArgument, sessionID)
	}
	s, err := c.acquire(ctx, sessionID)
	if err != nil {
		return models.TimerSnapshot{}, err
	}
	defer s.mu.Unlock()

	return s.state.Snapshot(sessionID, c.clock.Now()), nil
}

// Close cancels every pending watchdog. Persisted running timers are picked
// up again on the next load.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.sessions {
		s.mu.Lock()
		c.cancelWatchdog(s)
		s.mu.Unlock()
	}
}

// acquire returns the session with s.mu held, loaded and lazily expired.
func (c *Coordinator) acquire(ctx context.Context, sessionID int64) (*sessionTimer, error) {
	var s *sessionTimer
	for {
		c.mu.Lock()
		cached, ok := c.sessions[sessionID]
		if !ok {
			cached = &sessionTimer{}
			c.sessions[sessionID] = cached
		}
		c.mu.Unlock()

		cached.mu.Lock()
		if !cached.evicted {
			s = cached
			break
		}
		// swept while we waited; look it up again
		cached.mu.Unlock()
	}

	s.lastUsed = c.clock.Now()
	if !s.loaded {
		if err := c.load(ctx, sessionID, s); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	if s.state.Running && s.state.Remaining(c.clock.Now()) == 0 {
		c.expireLocked(ctx, sessionID, s, "lazy")
	}
	return s, nil
}

func (c *Coordinator) load(ctx context.Context, sessionID int64, s *sessionTimer) error {
	var state models.TimerState
	if c.store != nil {
		var err error
		state, err = c.store.LoadTimer(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load timer for session %d: %w", sessionID, err)
		}
	}

	switch {
	case state.Duration < 0 || state.Duration > MaxDurationLimit:
		log.Warn().
			Int64("session_id", sessionID).
			Int("duration", state.Duration).
			Msg("discarding persisted timer with out of range duration")
		state = models.TimerState{}
	case state.Running && (state.StartedAt == nil || state.Controller == ""):
		log.Warn().Int64("session_id", sessionID).Msg("discarding inconsistent persisted timer")
		state = models.TimerState{Duration: state.Duration}
	case state.Paused && state.Controller == "":
		state.Paused = false
		state.RemainingAtPauseMs = 0
	case state.Status() == models.TimerStatusIdle:
		state.Controller = ""
		state.StartedAt = nil
		state.RemainingAtPauseMs = 0
	}
	if limit := int64(state.Duration) * 1000; state.Paused && state.RemainingAtPauseMs > limit {
		state.RemainingAtPauseMs = limit
	}

	s.loaded = true
	c.setState(s, state)
	if state.Running && state.Remaining(c.clock.Now()) > 0 {
		c.armWatchdog(sessionID, s)
		log.Info().
			Int64("session_id", sessionID).
			Str("client", state.Controller).
			Msg("restored running timer")
	}
	return nil
}

// commit persists next and then makes it current. Caller holds s.mu.
func (c *Coordinator) commit(ctx context.Context, sessionID int64, s *sessionTimer, next models.TimerState) error {
	if c.store != nil {
		if err := c.store.SaveTimer(ctx, sessionID, next); err != nil {
			return fmt.Errorf("failed to save timer for session %d: %w", sessionID, err)
		}
	}
	c.setState(s, next)
	return nil
}

func (c *Coordinator) setState(s *sessionTimer, next models.TimerState) {
	switch {
	case !s.state.Running && next.Running:
		metrics.TimersRunning.Inc()
	case s.state.Running && !next.Running:
		metrics.TimersRunning.Dec()
	}
	s.state = next
}

// emit appends the current state as an event of the given kind and returns
// the snapshot that was sent. Caller holds s.mu, which keeps transitions and
// their events in the same order.
func (c *Coordinator) emit(sessionID int64, s *sessionTimer, kind events.Kind) models.TimerSnapshot {
	snap := s.state.Snapshot(sessionID, c.clock.Now())
	if c.events == nil {
		return snap
	}
	if _, err := c.events.Append(sessionID, kind, snap); err != nil {
		log.Error().
			Err(err).
			Int64("session_id", sessionID).
			Str("kind", string(kind)).
			Msg("failed to append timer event")
	}
	return snap
}

func (c *Coordinator) validate(sessionID int64, clientToken string) error {
	if sessionID <= 0 {
		return fmt.Errorf("%w: session id %d", ErrInvalidArgument, sessionID)
	}
	if strings.TrimSpace(clientToken) == "" {
		return fmt.Errorf("%w: client token is required", ErrInvalidArgument)
	}
	return nil
}

func (c *Coordinator) validateDuration(duration int) error {
	if duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidArgument, duration)
	}
	if duration > MaxDurationLimit {
		return fmt.Errorf("%w: duration %d exceeds limit of %d", ErrInvalidArgument, duration, MaxDurationLimit)
	}
	if c.config.MaxDuration > 0 && duration > c.config.MaxDuration {
		return fmt.Errorf("%w: duration %d exceeds limit of %d", ErrInvalidArgument, duration, c.config.MaxDuration)
	}
	return nil
}

func (c *Coordinator) observe(action string, err error) {
	metrics.TimerOperationsTotal.WithLabelValues(action, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}
