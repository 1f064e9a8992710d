package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvConfig    = "CIPHERCOURT_CONFIG"
	EnvOutputDir = "CIPHERCOURT_OUTPUT_DIR"
	EnvLogLevel  = "LOG_LEVEL"
)

// Env holds the environment overrides. Empty fields are unset.
type Env struct {
	ConfigPath string
	OutputDir  string
	LogLevel   string
}

// LoadDotEnv loads .env from the working directory when present. Variables already set
// are not overwritten.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

// FromEnv reads the overrides from the process environment.
func FromEnv() Env {
	return Env{
		ConfigPath: os.Getenv(EnvConfig),
		OutputDir:  os.Getenv(EnvOutputDir),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}

// Apply overlays the environment onto cfg.
func (e Env) Apply(cfg Config) Config {
	if e.OutputDir != "" {
		cfg.Reports.OutputDir = e.OutputDir
	}
	return cfg
}

// Level parses LogLevel, falling back to def.
func (e Env) Level(def slog.Level) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(e.LogLevel)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return def
	}
}
