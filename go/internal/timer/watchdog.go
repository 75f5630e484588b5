package timer

import (
	"context"
	"time"

	"github.com/mcdev12/retroboard/go/internal/events"
	"github.com/mcdev12/retroboard/go/internal/metrics"
	"github.com/rs/zerolog/log"
)

// armWatchdog schedules expiry of the running timer at its deadline,
// replacing any pending watchdog. Caller holds s.mu.
func (c *Coordinator) armWatchdog(sessionID int64, s *sessionTimer) {
	c.cancelWatchdog(s)

	deadline := s.state.StartedAt.Add(time.Duration(s.state.Duration) * time.Second)
	wait := deadline.Sub(c.clock.Now())
	if wait < 0 {
		wait = 0
	}

	gen := s.generation
	s.watchdog = c.clock.AfterFunc(wait, func() {
		c.fire(sessionID, s, gen)
	})

	log.Debug().
		Int64("session_id", sessionID).
		Uint64("generation", gen).
		Time("deadline", deadline).
		Msg("armed timer watchdog")
}

// cancelWatchdog invalidates any pending watchdog. A watchdog that already
// fired and is waiting on s.mu sees a stale generation and does nothing.
// Caller holds s.mu.
func (c *Coordinator) cancelWatchdog(s *sessionTimer) {
	s.generation++
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
}

func (c *Coordinator) fire(sessionID int64, s *sessionTimer, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || !s.state.Running {
		log.Debug().
			Int64("session_id", sessionID).
			Uint64("generation", gen).
			Msg("stale timer watchdog ignored")
		return
	}
	s.watchdog = nil

	ctx, cancel := context.WithTimeout(context.Background(), c.config.PersistTimeout)
	defer cancel()
	c.expireLocked(ctx, sessionID, s, "watchdog")
}

// expireLocked moves a running timer to Idle and emits a single timer_stop.
// The configured duration is kept so clients can show what just finished.
// Persistence failures are logged; the in-memory state still goes Idle.
func (c *Coordinator) expireLocked(ctx context.Context, sessionID int64, s *sessionTimer, path string) {
	c.cancelWatchdog(s)

	next := s.state
	next.Running = false
	next.Paused = false
	next.StartedAt = nil
	next.RemainingAtPauseMs = 0
	next.Controller = ""

	if c.store != nil {
		if err := c.store.SaveTimer(ctx, sessionID, next); err != nil {
			log.Error().
				Err(err).
				Int64("session_id", sessionID).
				Str("path", path).
				Msg("failed to persist expired timer")
		}
	}
	c.setState(s, next)
	metrics.TimerExpirationsTotal.WithLabelValues(path).Inc()

	log.Info().
		Int64("session_id", sessionID).
		Str("path", path).
		Int("duration", next.Duration).
		Msg("timer expired")

	c.emit(sessionID, s, events.KindTimerStop)
}
