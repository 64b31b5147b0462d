// Package config loads runtime settings from the environment, with an
// optional .env file overlay for local development.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds everything the server needs at startup.
//
// EncryptionKey is the process-wide credential cipher key. Rotating it makes
// every stored vendor credential unreadable; users have to enter them again.
type Config struct {
	Port           string
	DatabaseURL    string
	JWTSecret      []byte
	EncryptionKey  []byte
	RiseAPIURL     string
	SyncTimeout    time.Duration
	SyncMaxRetries uint64
	Env            string
	CORSOrigins    []string
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RiseAPIURL:  strings.TrimRight(getenv("RISE_API_URL", "https://rise.example.com/api"), "/"),
		Env:         getenv("APP_ENV", EnvProduction),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	cfg.JWTSecret = []byte(secret)

	key, err := decodeKey(os.Getenv("ENCRYPTION_KEY"))
	if err != nil {
		return nil, err
	}
	cfg.EncryptionKey = key

	cfg.SyncTimeout, err = time.ParseDuration(getenv("SYNC_TIMEOUT", "15s"))
	if err != nil || cfg.SyncTimeout <= 0 {
		return nil, fmt.Errorf("SYNC_TIMEOUT: invalid duration %q", os.Getenv("SYNC_TIMEOUT"))
	}

	cfg.SyncMaxRetries, err = strconv.ParseUint(getenv("SYNC_MAX_RETRIES", "2"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("SYNC_MAX_RETRIES: %w", err)
	}

	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return nil, fmt.Errorf("APP_ENV: unknown environment %q", cfg.Env)
	}

	for _, o := range strings.Split(getenv("CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether verbose, human-readable logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func decodeKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, errors.New("ENCRYPTION_KEY is required")
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY: not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY: must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
