// Package config loads service configuration from the environment.
package config

import "github.com/kelseyhightower/envconfig"

type Config struct {
	HTTPAddr      string `envconfig:"HTTP_ADDR" default:":8080"`
	DatabaseDSN   string `envconfig:"DB_DSN" required:"true"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	SweepSchedule string `envconfig:"SWEEP_SCHEDULE" default:"@every 10m"`
}

// Load reads WISHWELL_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("wishwell", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
