// Package config reads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	OpenAIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL"`
	NarratorModel   string        `env:"NARRATOR_MODEL" envDefault:"gpt-4o-mini"`
	NarratorTimeout time.Duration `env:"NARRATOR_TIMEOUT" envDefault:"60s"`
	HistoryTurns    int           `env:"HISTORY_TURNS" envDefault:"20"`

	ChatRate  float64 `env:"CHAT_RATE" envDefault:"2"`
	ChatBurst int     `env:"CHAT_BURST" envDefault:"5"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Load reads .env.local and .env when present, then the environment.
// It returns the dotenv files that were found.
func Load() (*Config, []string, error) {
	var loaded []string
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return nil, loaded, fmt.Errorf("load %s: %w", name, err)
		}
		loaded = append(loaded, name)
	}

	cfg, err := parse(env.Options{})
	return cfg, loaded, err
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HistoryTurns < 2 {
		errs = append(errs, errors.New("HISTORY_TURNS must be at least 2"))
	}
	if c.NarratorTimeout <= 0 {
		errs = append(errs, errors.New("NARRATOR_TIMEOUT must be positive"))
	}
	if c.ChatRate <= 0 || c.ChatBurst < 1 {
		errs = append(errs, errors.New("CHAT_RATE and CHAT_BURST must be positive"))
	}
	return errors.Join(errs...)
}
