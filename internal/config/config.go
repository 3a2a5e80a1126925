package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quiz-host"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Trivia   Trivia
	Session  Session
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds cache configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
}

// Trivia configures the external question bank.
type Trivia struct {
	BaseURL      string        `env:"TRIVIA_BASE_URL" envDefault:"https://opentdb.com"`
	HTTPTimeout  time.Duration `env:"TRIVIA_HTTP_TIMEOUT" envDefault:"5s"`
	CatalogTTL   time.Duration `env:"TRIVIA_CATALOG_TTL" envDefault:"12h"`
	QuestionsTTL time.Duration `env:"TRIVIA_QUESTIONS_TTL" envDefault:"5m"`
}

// Session groups live-session defaults.
type Session struct {
	LevelLoadTimeout      time.Duration `env:"SESSION_LEVEL_LOAD_TIMEOUT" envDefault:"10s"`
	DefaultTimeoutSeconds int           `env:"SESSION_DEFAULT_TIMEOUT_SECONDS" envDefault:"20"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
