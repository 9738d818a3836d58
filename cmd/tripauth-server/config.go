package main

import (
	"errors"

	"github.com/spf13/viper"
)

// serverConfig holds backend configuration loaded from the environment.
type serverConfig struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8085).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// RedisAddr is the redis host:port holding auth profiles.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the redis AUTH password, if any.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB selects the redis logical database.
	RedisDB int `mapstructure:"REDIS_DB"`
	// ProfileKeyPrefix namespaces profile keys.
	ProfileKeyPrefix string `mapstructure:"PROFILE_KEY_PREFIX"`
	// JWTSecret is the HMAC secret bearer tokens are verified with.
	JWTSecret string `mapstructure:"JWT_SECRET"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// loadConfig reads .env (if present), then builds and validates config from
// the environment. Missing .env is ignored; env vars override .env.
func loadConfig() (*serverConfig, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8085")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PROFILE_KEY_PREFIX", "aup")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@tripwell.io")
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("APP_ENV", "development")

	var cfg serverConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}

	return &cfg, nil
}
