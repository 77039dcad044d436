package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultJWTSecret = "default-secret-change-in-production"

// Config содержит конфигурацию приложения.
type Config struct {
	RunAddress       string        `env:"RUN_ADDRESS" env-description:"адрес и порт HTTP сервера"`
	DatabaseURI      string        `env:"DATABASE_URI" env-description:"строка подключения к PostgreSQL"`
	JWTSecret        string        `env:"JWT_SECRET" env-description:"секрет подписи токенов операторов"`
	TokenExpiration  time.Duration `env:"TOKEN_EXPIRATION" env-description:"время жизни токена"`
	AMQPURL          string        `env:"AMQP_URL" env-description:"адрес RabbitMQ для заявок на возврат"`
	RefundWebhookURL string        `env:"REFUND_WEBHOOK_URL" env-description:"webhook процесса возвратов, если AMQP не задан"`
	OutboxInterval   time.Duration `env:"OUTBOX_INTERVAL" env-description:"период опроса outbox"`
	OutboxRate       float64       `env:"OUTBOX_RATE" env-description:"публикаций в секунду"`
	LogLevel         string        `env:"LOG_LEVEL" env-description:"debug, info, warn или error"`
}

// Load загружает конфигурацию из аргументов командной строки и переменных окружения.
// Приоритет: переменные окружения > флаги > значения по умолчанию.
func Load(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("flowershop", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", "localhost:8080", "адрес и порт запуска сервиса")
	fs.StringVar(&cfg.DatabaseURI, "d", "", "строка подключения к PostgreSQL")
	fs.DurationVar(&cfg.TokenExpiration, "t", 24*time.Hour, "время жизни токена")
	fs.StringVar(&cfg.AMQPURL, "m", "", "адрес RabbitMQ")
	fs.StringVar(&cfg.RefundWebhookURL, "w", "", "webhook процесса возвратов")
	fs.DurationVar(&cfg.OutboxInterval, "i", 5*time.Second, "период опроса outbox")
	fs.Float64Var(&cfg.OutboxRate, "r", 10, "ограничение публикаций в секунду")
	fs.StringVar(&cfg.LogLevel, "l", "info", "уровень логирования")
	fs.Usage = cleanenv.FUsage(fs.Output(), cfg, nil, fs.PrintDefaults)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = defaultJWTSecret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DatabaseURI == "" {
		errs = append(errs, errors.New("database URI is required (-d or DATABASE_URI)"))
	}
	if c.TokenExpiration <= 0 {
		errs = append(errs, fmt.Errorf("token expiration must be positive, got %s", c.TokenExpiration))
	}
	if c.OutboxInterval <= 0 {
		errs = append(errs, fmt.Errorf("outbox interval must be positive, got %s", c.OutboxInterval))
	}
	if c.OutboxRate <= 0 {
		errs = append(errs, fmt.Errorf("outbox rate must be positive, got %v", c.OutboxRate))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// UsesDefaultSecret сообщает, что секрет JWT не задан явно.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

// SlogLevel возвращает уровень логирования для slog.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
