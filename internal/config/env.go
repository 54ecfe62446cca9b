package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Env holds the settings the environment may override. Empty means unset.
type Env struct {
	DataDir      string `env:"INTERNFLOW_DATA_DIR"`
	Port         int    `env:"INTERNFLOW_PORT"`
	DBDriver     string `env:"DB_DRIVER"`
	DatabaseURL  string `env:"DATABASE_URL"`
	LogLevel     string `env:"LOG_LEVEL"`
	LogFormat    string `env:"LOG_FORMAT"`
	IMAPPassword string `env:"INTERNFLOW_IMAP_PASSWORD"`
	// ShutdownToken guards POST /shutdown; generated when unset.
	ShutdownToken string `env:"INTERNFLOW_SHUTDOWN_TOKEN"`
}

// LoadEnv reads the .env files (missing ones are fine) into the process
// environment and then the variables into Env.
func LoadEnv(dotenv ...string) (Env, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, fmt.Errorf("load .env: %w", err)
	}
	var e Env
	if err := env.Load(&e, nil); err != nil {
		return Env{}, fmt.Errorf("load environment: %w", err)
	}
	return e, nil
}

// Apply overlays the set fields onto cfg. A DATABASE_URL without DB_DRIVER
// implies postgres.
func (e Env) Apply(cfg Config) Config {
	if s := strings.TrimSpace(e.DataDir); s != "" {
		cfg.App.DataDir = s
	}
	if e.Port > 0 {
		cfg.App.Port = e.Port
	}
	if s := strings.TrimSpace(e.DatabaseURL); s != "" {
		cfg.Database.DSN = s
		cfg.Database.Driver = "postgres"
	}
	if s := strings.TrimSpace(e.DBDriver); s != "" {
		cfg.Database.Driver = strings.ToLower(s)
	}
	if s := strings.TrimSpace(e.LogLevel); s != "" {
		cfg.Logging.Level = s
	}
	if s := strings.TrimSpace(e.LogFormat); s != "" {
		cfg.Logging.Format = s
	}
	return cfg
}
