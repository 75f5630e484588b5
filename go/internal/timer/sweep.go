package timer

import (
	"context"
	"time"

	"github.com/mcdev12/retroboard/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Sweep drops idle sessions that have not been used for IdleTTL. Their
// state is reloaded from the store on next use. Sessions that are busy,
// running or paused are kept, as are idle sessions whose only copy of the
// configured duration is in memory.
func (c *Coordinator) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, s := range c.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if c.evictable(s, now) {
			c.cancelWatchdog(s)
			s.evicted = true
			delete(c.sessions, id)
			evicted++
		}
		s.mu.Unlock()
	}
	return evicted
}

// Sessions returns the number of cached sessions.
func (c *Coordinator) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Run sweeps on the configured interval until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", c.config.SweepInterval).
		Dur("idle_ttl", c.config.IdleTTL).
		Msg("timer sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer sweeper shutting down")
			return
		case <-ticker.Chan():
			evicted := c.Sweep()
			log.Debug().
				Int("evicted", evicted).
				Int("sessions", c.Sessions()).
				Msg("timer sessions swept")
		}
	}
}

// Caller holds s.mu.
func (c *Coordinator) evictable(s *sessionTimer, now time.Time) bool {
	if s.state.Status() != models.TimerStatusIdle {
		return false
	}
	if c.store == nil && s.state != (models.TimerState{}) {
		return false
	}
	return now.Sub(s.lastUsed) >= c.config.IdleTTL
}
