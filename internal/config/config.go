package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type BotConfig struct {
	Token    string  `env:"BOT_TOKEN"`
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`
	Workers  int     `env:"BOT_WORKERS" envDefault:"8"`
}

type ChannelConfig struct {
	ID  int64  `env:"CHANNEL_ID"`
	URL string `env:"CHANNEL_URL"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`     // trace|debug|info|warn|error
	Format string `env:"LOG_FORMAT" envDefault:"console"` // json|console
}

type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type OpsConfig struct {
	Port   int    `env:"OPS_PORT" envDefault:"8090"`
	APIKey string `env:"ADMIN_API_KEY"`
}

type CoinsConfig struct {
	StartingBalance int64 `env:"STARTING_BALANCE" envDefault:"2"`
	ReferralBonus   int64 `env:"REFERRAL_BONUS" envDefault:"1"`
}

type RateLimitConfig struct {
	PerCommand int           `env:"RATE_LIMIT_PER_COMMAND" envDefault:"10"`
	Window     time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

type Config struct {
	Bot       BotConfig
	Channel   ChannelConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Ops       OpsConfig
	Coins     CoinsConfig
	RateLimit RateLimitConfig
}

// Load reads configuration from the process environment, optionally seeded
// from a .env file. Missing .env is fine; in production the variables are set
// directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}

	// Minimal validation. An empty BOT_TOKEN is allowed: the app then runs
	// with the noop telegram adapter.
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}
