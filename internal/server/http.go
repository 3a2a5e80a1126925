package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quiz-host/internal/auth"
	"github.com/quizdeck/quiz-host/internal/config"
	"github.com/quizdeck/quiz-host/internal/quiz"
	"github.com/quizdeck/quiz-host/internal/session"
)

// NewHTTPServer wires the API routes. Everything under /v1 requires a valid
// host token; /healthz, /metrics and the session feed are open.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, tokens *auth.Manager, quizHandlers *quiz.HTTPHandlers, sessionHandlers *session.HTTPHandlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := pingDependencies(r.Context(), pool, redis); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	requireAuth := auth.RequireAuth(tokens, logger)

	mux.Handle("POST /v1/quizzes", requireAuth(http.HandlerFunc(quizHandlers.Create)))
	mux.Handle("GET /v1/quizzes", requireAuth(http.HandlerFunc(quizHandlers.List)))
	mux.Handle("DELETE /v1/quizzes/{id}", requireAuth(http.HandlerFunc(quizHandlers.Delete)))
	mux.Handle("GET /v1/categories", requireAuth(http.HandlerFunc(quizHandlers.Categories)))

	mux.Handle("POST /v1/session/start", requireAuth(http.HandlerFunc(sessionHandlers.Start)))
	mux.Handle("POST /v1/session/answer", requireAuth(http.HandlerFunc(sessionHandlers.Answer)))
	mux.Handle("POST /v1/session/advance", requireAuth(http.HandlerFunc(sessionHandlers.Advance)))
	mux.Handle("POST /v1/session/end", requireAuth(http.HandlerFunc(sessionHandlers.End)))
	mux.Handle("GET /v1/session", requireAuth(http.HandlerFunc(sessionHandlers.State)))
	mux.Handle("GET /v1/session/results", requireAuth(http.HandlerFunc(sessionHandlers.Results)))

	// Shared-screen feed. No auth: the screen only ever sees what the host
	// already projects to the room.
	mux.HandleFunc("GET /ws/session", sessionHandlers.Feed)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redis.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
