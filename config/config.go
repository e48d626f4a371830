/*
config.go - Server configuration

Settings come from an optional YAML file plus environment overrides.
Everything has a workable default so `go run ./cmd/server` starts
against a local sqlite file with the demo rate card.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"dev"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	DBPath     string `yaml:"db_path" env:"DB_PATH" env-default:"labour.db"`
	RateCard   string `yaml:"rate_card" env:"RATE_CARD"`
	HTTPServer `yaml:"http_server"`
	Forecast   ForecastConfig `yaml:"forecast"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"30s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
}

// ForecastConfig bounds the planning window when a location has no
// recorded project end date.
type ForecastConfig struct {
	HorizonMonths int `yaml:"horizon_months" env:"FORECAST_HORIZON_MONTHS" env-default:"6"`
}

// Load reads the config file at path when it exists, then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	return &cfg, nil
}
