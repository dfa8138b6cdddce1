package logx

import (
	"io"
	"os"
	"strings"
	"time"
)

// Format selects the output encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config holds the logger configuration.
type Config struct {
	Level        Level
	Format       Format
	EnableColors bool
	TimeFormat   string
	Output       io.Writer
}

func DefaultConfig() *Config {
	return &Config{
		Level:        LevelInfo,
		Format:       FormatConsole,
		EnableColors: true,
		TimeFormat:   time.RFC3339,
		Output:       os.Stdout,
	}
}

// LoadFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_COLOR and LOG_TIME_FORMAT.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = ParseLevel(v)
	}

	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		cfg.Format = FormatJSON
		cfg.EnableColors = false
	case "console":
		cfg.Format = FormatConsole
	}

	if v := os.Getenv("LOG_COLOR"); v != "" {
		cfg.EnableColors = strings.EqualFold(v, "true") || v == "1"
	}

	switch strings.ToUpper(os.Getenv("LOG_TIME_FORMAT")) {
	case "", "RFC3339":
	case "RFC3339NANO":
		cfg.TimeFormat = time.RFC3339Nano
	case "UNIXMILLI":
		cfg.TimeFormat = "unixmilli"
	default:
		cfg.TimeFormat = os.Getenv("LOG_TIME_FORMAT")
	}

	return cfg
}
