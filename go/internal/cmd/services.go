package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/retroboard/go/internal/board"
	"github.com/mcdev12/retroboard/go/internal/config"
	"github.com/mcdev12/retroboard/go/internal/eventlog"
	"github.com/mcdev12/retroboard/go/internal/gateway"
	"github.com/mcdev12/retroboard/go/internal/outbox"
	"github.com/mcdev12/retroboard/go/internal/timer"
	"github.com/rs/zerolog/log"
)

const defaultTimerDuration = 300

type Services struct {
	Events    *eventlog.Log
	Board     *board.App
	Timers    *timer.Coordinator
	Relay     *outbox.Relay
	publisher *outbox.JetStreamPublisher
}

func setupServices(ctx context.Context, cfg config.Config, boardCfg config.Board, database *sql.DB) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Gateway layer
	clock := clockwork.NewRealClock()

	events := eventlog.New(eventlog.Config{
		MaxEvents:     cfg.EventLog.MaxEvents,
		Retention:     cfg.EventLog.Retention,
		SweepInterval: cfg.EventLog.SweepInterval,
	}, clock)

	repo := board.NewRepository(database)
	app := board.NewApp(repo, events, clock, boardCfg.Categories)
	timers := timer.NewCoordinator(clock, repo, events, timer.Config{
		MaxDuration:   boardCfg.Timer.MaxDuration,
		IdleTTL:       cfg.Timers.IdleTTL,
		SweepInterval: cfg.Timers.SweepInterval,
	})

	services := &Services{
		Events: events,
		Board:  app,
		Timers: timers,
	}

	if cfg.NATS.Enabled {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		jsCfg.StreamName = cfg.NATS.Stream
		jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix

		publisher, err := outbox.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			timers.Close()
			return nil, fmt.Errorf("failed to start event relay: %w", err)
		}
		services.publisher = publisher
		services.Relay = outbox.NewRelay(publisher, clock, outbox.DefaultConfig())
		events.SetSink(services.Relay)
	}

	return services, nil
}

func (s *Services) Handlers(boardCfg config.Board) gateway.Handlers {
	duration := boardCfg.Timer.DefaultDuration
	if duration <= 0 {
		duration = defaultTimerDuration
	}
	return gateway.Handlers{
		Events: gateway.NewEventsHandler(s.Board, s.Events),
		Timer:  gateway.NewTimerHandler(s.Board, s.Timers, duration),
		Board:  gateway.NewBoardHandler(s.Board),
	}
}

// Run starts the background loops. They stop when ctx is cancelled.
func (s *Services) Run(ctx context.Context) {
	go s.Events.Run(ctx)
	go s.Timers.Run(ctx)
	if s.Relay != nil {
		go s.Relay.Run(ctx)
	}
}

func (s *Services) Close() {
	s.Timers.Close()
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event publisher")
		}
	}
}
