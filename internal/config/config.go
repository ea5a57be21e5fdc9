package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server     ServerConfig     `json:"server"`
	Redis      RedisConfig      `json:"redis"`
	Postgres   PostgresConfig   `json:"postgres"`
	Auth       AuthConfig       `json:"auth"`
	FloodGuard FloodGuardConfig `json:"flood_guard"`
	Tiers      []TierLimits     `json:"tiers"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type PostgresConfig struct {
	// DSN empty disables Postgres; the gateway then runs without the admin
	// key store and usage log.
	DSN string `json:"dsn"`
}

type AuthConfig struct {
	JWTSecret        string `json:"jwt_secret"`
	TokenExpiryHours int    `json:"token_expiry_hours"`

	// AdminEmail/AdminPassword seed the first admin console account on
	// startup. Env only; never stored in the config file.
	AdminEmail    string `json:"-"`
	AdminPassword string `json:"-"`
}

type FloodGuardConfig struct {
	RPS   float64 `json:"rps"`
	Burst int     `json:"burst"`
}

// TierLimits overrides the window limits of a built-in tier from config.
// Zero means unlimited.
type TierLimits struct {
	Name              string `json:"name"`
	RequestsPerMinute int64  `json:"requests_per_minute"`
	RequestsPerHour   int64  `json:"requests_per_hour"`
	RequestsPerDay    int64  `json:"requests_per_day"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Environment: "development",
		},
		Redis: RedisConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    "6379",
		},
		Auth: AuthConfig{
			TokenExpiryHours: 24,
		},
		FloodGuard: FloodGuardConfig{
			RPS:   1,
			Burst: 5,
		},
	}
}

// Load reads the JSON config file and applies environment overrides on top.
// A missing file is not an error; defaults plus environment are enough to
// run.
func Load(path string) (*Config, error) {
	cfg := defaults()

	file, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.Redis.Port = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_EMAIL"); v != "" {
		c.Auth.AdminEmail = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		c.Auth.AdminPassword = v
	}
}
