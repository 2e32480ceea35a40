package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`

	// Max size in bytes of a single inbound WS frame.
	WsReadLimit int64 `env:"WS_READ_LIMIT" envDefault:"4096" validate:"min=256"`

	// Upper bound on code regenerations when a freshly generated room code
	// collides with a live room. One attempt suffices in practice.
	RoomCodeMaxAttempts int `env:"ROOM_CODE_MAX_ATTEMPTS" envDefault:"50" validate:"min=1"`
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
