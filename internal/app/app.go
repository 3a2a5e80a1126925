package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizdeck/quiz-host/internal/auth"
	"github.com/quizdeck/quiz-host/internal/config"
	"github.com/quizdeck/quiz-host/internal/db/repository"
	"github.com/quizdeck/quiz-host/internal/logging"
	"github.com/quizdeck/quiz-host/internal/quiz"
	"github.com/quizdeck/quiz-host/internal/server"
	"github.com/quizdeck/quiz-host/internal/session"
	"github.com/quizdeck/quiz-host/internal/trivia"
	"github.com/quizdeck/quiz-host/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool    *pgxpool.Pool
	redis   *redis.Client
	http    *http.Server
	machine *session.Machine
}

// hubSink forwards machine events onto the websocket hub.
type hubSink struct {
	hub *ws.Hub
}

func (s hubSink) Publish(event session.Event) {
	s.hub.Broadcast(ws.Message{Type: string(event.Type), Payload: event})
}

// New bootstraps config, logger, Postgres, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	tokens := auth.NewManager(auth.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Name,
	})

	quizRepo := repository.NewQuizRepository(pool)

	triviaClient := trivia.NewClient(cfg.Trivia.BaseURL, &http.Client{Timeout: cfg.Trivia.HTTPTimeout}, logger)
	triviaCache := trivia.NewCache(redisClient, cfg.Trivia.CatalogTTL, cfg.Trivia.QuestionsTTL)
	triviaSource := trivia.NewCachedSource(triviaClient, triviaCache, logger)

	distributor := quiz.NewDistributor(triviaSource, nil, logger)

	wsHub := ws.NewHub(logger)
	machine := session.NewMachine(distributor, quizRepo, hubSink{hub: wsHub}, session.Options{
		LevelLoadTimeout:      cfg.Session.LevelLoadTimeout,
		DefaultTimeoutSeconds: cfg.Session.DefaultTimeoutSeconds,
	}, logger)

	quizHandlers := quiz.NewHTTPHandlers(quizRepo, triviaSource, logger)
	sessionHandlers := session.NewHTTPHandlers(machine, quizRepo, wsHub, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, tokens, quizHandlers, sessionHandlers)

	return &Application{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		redis:   redisClient,
		http:    apiServer,
		machine: machine,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	// Flush a still-running session so scores survive a deploy.
	if err := a.machine.End(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("session flush on shutdown failed")
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
