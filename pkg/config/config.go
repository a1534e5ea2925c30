package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		AllowOrigins string `yaml:"allow_origins"`
		// MutationsPerMinute caps engagement writes per caller; 0 disables it.
		MutationsPerMinute int `yaml:"mutations_per_minute"`
	} `yaml:"server"`
	Storage  string `yaml:"storage"`
	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Hub struct {
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"hub"`
}

func Default() *Config {
	cfg := &Config{Storage: "postgres"}
	cfg.Server.Port = "8082"
	cfg.Server.AllowOrigins = "http://localhost:3000"
	cfg.Server.MutationsPerMinute = 30
	cfg.Redis.URL = "redis://localhost:6379"
	cfg.Auth.JWTSecret = "dev-secret-key-change-in-production"
	cfg.Hub.WriteTimeout = 10 * time.Second
	return cfg
}

// Load reads the optional YAML file at path, then .env, then the process
// environment. Later sources win.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	// .env is optional in every environment
	_ = godotenv.Load()

	overrideEnv(&cfg.Server.Port, "PORT")
	overrideEnv(&cfg.Server.AllowOrigins, "CORS_ORIGINS")
	overrideEnv(&cfg.Storage, "STORAGE")
	overrideEnv(&cfg.Postgres.DSN, "DATABASE_URL")
	overrideEnv(&cfg.Redis.URL, "REDIS_URL")
	overrideEnv(&cfg.Auth.JWTSecret, "JWT_SECRET")

	if cfg.Storage != "memory" && cfg.Storage != "postgres" {
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
	if cfg.Storage == "postgres" && cfg.Postgres.DSN == "" {
		return nil, errors.New("DATABASE_URL is required for postgres storage")
	}

	return cfg, nil
}

func overrideEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
