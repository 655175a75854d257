// Package config содержит логику чтения конфигурации сервиса бронирований.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса бронирований.
type Config struct {
	RunAddress        string `env:"RUN_ADDRESS"`
	DatabaseURI       string `env:"DATABASE_URI"`
	MidtransServerKey string `env:"MIDTRANS_SERVER_KEY"`
	MidtransBaseURL   string `env:"MIDTRANS_BASE_URL"`
	RedisAddress      string `env:"REDIS_ADDRESS"`
	AuthSecret        string `env:"AUTH_SECRET"`
	Timezone          string `env:"TIMEZONE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envValues := *cfg

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.MidtransServerKey, "k", "", "midtrans server key")
	flag.StringVar(&cfg.MidtransBaseURL, "m", "https://app.sandbox.midtrans.com", "midtrans base URL")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for availability cache (empty disables cache)")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")
	flag.StringVar(&cfg.Timezone, "tz", "Asia/Jakarta", "IANA timezone of the booking calendar")

	flag.Parse()

	if envValues.RunAddress != "" {
		cfg.RunAddress = envValues.RunAddress
	}
	if envValues.DatabaseURI != "" {
		cfg.DatabaseURI = envValues.DatabaseURI
	}
	if envValues.MidtransServerKey != "" {
		cfg.MidtransServerKey = envValues.MidtransServerKey
	}
	if envValues.MidtransBaseURL != "" {
		cfg.MidtransBaseURL = envValues.MidtransBaseURL
	}
	if envValues.RedisAddress != "" {
		cfg.RedisAddress = envValues.RedisAddress
	}
	if envValues.AuthSecret != "" {
		cfg.AuthSecret = envValues.AuthSecret
	}
	if envValues.Timezone != "" {
		cfg.Timezone = envValues.Timezone
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Jakarta"
	}

	return cfg, nil
}
