package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mcdev12/retroboard/go/internal/metrics"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Handlers groups the route handlers mounted by NewRouter.
type Handlers struct {
	Events *EventsHandler
	Timer  *TimerHandler
	Board  *BoardHandler
}

// NewRouter mounts the JSON API, /health and /metrics.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/events/{session}", h.Events.Poll)
		r.Get("/categories", h.Board.Categories)

		r.Route("/retrospectives", func(r chi.Router) {
			r.Post("/", h.Board.CreateSession)
			r.Get("/", h.Board.ListSessions)
			r.Route("/{session}", func(r chi.Router) {
				r.Get("/", h.Board.GetSession)
				r.Delete("/", h.Board.DeactivateSession)
				r.Get("/feedback", h.Board.ListFeedback)
				r.Get("/timer", h.Timer.Get)
				r.Post("/timer", h.Timer.Control)
			})
		})

		r.Post("/feedback", h.Board.CreateFeedback)
		r.Put("/feedback/{id}", h.Board.UpdateFeedback)
		r.Delete("/feedback/{id}", h.Board.DeleteFeedback)

		r.Post("/votes", h.Board.Vote)
		r.Delete("/votes", h.Board.Unvote)
		r.Get("/votes/user", h.Board.VotedItems)
	})

	return r
}

// NewServer wraps the router with CORS and h2c.
func NewServer(addr string, handler http.Handler, allowedOrigins []string) *http.Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: allowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(c.Handler(handler), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
