package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TimerOperationsTotal counts coordinator operations by action and result.
	TimerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retro_timer_operations_total",
			Help: "Timer coordinator operations by action and result",
		},
		[]string{"action", "result"}, // result=ok|invalid_argument|conflict|invalid_state|error
	)

	// TimerExpirationsTotal counts transitions to idle caused by expiry.
	TimerExpirationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retro_timer_expirations_total",
			Help: "Timer expirations by the path that observed them",
		},
		[]string{"path"}, // path=watchdog|lazy
	)

	// TimersRunning tracks how many session timers are counting down.
	TimersRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "retro_timers_running",
			Help: "Number of session timers currently running",
		},
	)

	// EventsAppendedTotal counts appended events by kind.
	EventsAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retro_eventlog_appended_total",
			Help: "Events appended to the event log by kind",
		},
		[]string{"kind"},
	)

	// EventsEvictedTotal counts evicted events by reason.
	EventsEvictedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retro_eventlog_evicted_total",
			Help: "Events evicted from the event log by reason",
		},
		[]string{"reason"}, // reason=capacity|retention
	)

	// EventLogSessions tracks sessions with retained events.
	EventLogSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "retro_eventlog_sessions",
			Help: "Sessions with at least one retained event",
		},
	)

	// PollRequestsTotal counts polling endpoint requests by outcome.
	PollRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retro_poll_requests_total",
			Help: "Event polling requests by outcome",
		},
		[]string{"outcome"}, // outcome=updates|empty|error
	)

	// OutboxPublishedTotal counts relay publishes by result.
	OutboxPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retro_outbox_published_total",
			Help: "Events relayed to the message bus by result",
		},
		[]string{"result"}, // result=ok|error|dropped
	)
)

func init() {
	prometheus.MustRegister(
		TimerOperationsTotal,
		TimerExpirationsTotal,
		TimersRunning,
		EventsAppendedTotal,
		EventsEvictedTotal,
		EventLogSessions,
		PollRequestsTotal,
		OutboxPublishedTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
