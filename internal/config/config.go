package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"chat_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"chat_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"chat_db"`

	// Cross-instance fan-out over Redis pub/sub. A single instance serves
	// everything from the in-process hub and never touches Redis.
	RedisFanoutEnabled bool   `env:"REDIS_FANOUT_ENABLED" envDefault:"false"`
	RedisChatHost      string `env:"REDIS_CHAT_HOST" envDefault:"localhost"`
	RedisChatPort      uint16 `env:"REDIS_CHAT_PORT" envDefault:"6379" validate:"min=1000,max=65535"`

	// Outbound frames queued per websocket connection before the router
	// starts dropping deliveries to it.
	WsSendQueueSize int `env:"WS_SEND_QUEUE_SIZE" envDefault:"64" validate:"min=1"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
